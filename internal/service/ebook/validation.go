package ebook

import (
	"errors"
	"strings"

	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"

	mapset "github.com/deckarep/golang-set/v2"
)

// notBlank rejects strings that are empty after trimming. Nil pointers pass.
func notBlank(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return errors.New("must be a string")
	}

	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// validatePermutation checks that ids lists every module of the book exactly once.
func validatePermutation(modules []models.Module, ids []int64) error {
	if len(ids) != len(modules) {
		return &domain.ValidationError{Message: "module order must list every module of the book exactly once"}
	}

	want := mapset.NewThreadUnsafeSet[int64]()
	for _, m := range modules {
		want.Add(m.ID)
	}
	got := mapset.NewThreadUnsafeSet[int64](ids...)

	if got.Cardinality() != len(ids) || !want.Equal(got) {
		return &domain.ValidationError{Message: "module order must list every module of the book exactly once"}
	}
	return nil
}

// duplicateIDs reports the IDs that occur more than once, ignoring zero.
func duplicateIDs(ids []int64) []int64 {
	seen := mapset.NewThreadUnsafeSet[int64]()
	var dups []int64
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if !seen.Add(id) {
			dups = append(dups, id)
		}
	}
	return dups
}
