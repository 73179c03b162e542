package handler

import "net/http"

// Middleware wraps a single route
type Middleware func(http.Handler) http.Handler

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Books    *BookHandler
	Modules  *ModuleHandler
	Backup   *BackupHandler
	Snapshot *SnapshotHandler
	Sync     *SyncHandler
	Mode     *ModeHandler
}

// Register mounts the routes on mux. write guards routes that change stored
// data; operator guards the mode switch, which must stay reachable in reader mode.
func (h *Handlers) Register(mux *http.ServeMux, write, operator Middleware) {
	guard := func(m Middleware, fn http.HandlerFunc) http.Handler {
		if m == nil {
			return fn
		}
		return m(fn)
	}
	w := func(fn http.HandlerFunc) http.Handler { return guard(write, fn) }

	// Health check
	mux.HandleFunc("GET /health", HealthCheck)

	// Book routes
	mux.HandleFunc("GET /api/book", h.Books.GetActiveBook)
	mux.HandleFunc("GET /api/books", h.Books.ListBooks)
	mux.Handle("POST /api/books", w(h.Books.CreateBook))
	mux.HandleFunc("GET /api/books/{id}", h.Books.GetBook)
	mux.Handle("PATCH /api/books/{id}", w(h.Books.UpdateBook))
	mux.Handle("DELETE /api/books/{id}", w(h.Books.DeleteBook))
	mux.HandleFunc("GET /api/books/{id}/modules", h.Books.ListModules)
	mux.Handle("POST /api/books/{id}/modules", w(h.Books.CreateModule))
	mux.Handle("PUT /api/books/{id}/modules/order", w(h.Books.ReorderModules))

	// Module routes
	mux.HandleFunc("GET /api/modules/{id}", h.Modules.GetModule)
	mux.Handle("PATCH /api/modules/{id}", w(h.Modules.UpdateModule))
	mux.Handle("DELETE /api/modules/{id}", w(h.Modules.DeleteModule))
	mux.Handle("PUT /api/modules/{id}/attachment", w(h.Modules.AttachPDF))
	mux.HandleFunc("GET /api/modules/{id}/attachment", h.Modules.DownloadAttachment)
	mux.Handle("DELETE /api/modules/{id}/attachment", w(h.Modules.ClearAttachment))

	// Attachment handles are read-side resources
	mux.HandleFunc("POST /api/modules/{id}/attachment/handle", h.Modules.CreateHandle)
	mux.HandleFunc("GET /api/handles/{token}", h.Modules.GetHandle)
	mux.HandleFunc("DELETE /api/handles/{token}", h.Modules.ReleaseHandle)

	// Backup routes
	mux.Handle("POST /api/backup", w(h.Backup.RunBackup))
	mux.HandleFunc("GET /api/backup", h.Backup.GetStatus)
	mux.HandleFunc("GET /api/backup/verify", h.Backup.Verify)
	mux.Handle("POST /api/backup/restore", w(h.Backup.Restore))

	// Export/import routes
	mux.HandleFunc("GET /api/export", h.Snapshot.Export)
	mux.HandleFunc("GET /api/export/markdown", h.Snapshot.ExportMarkdown)
	mux.Handle("POST /api/import", w(h.Snapshot.Import))
	mux.Handle("PUT /api/snapshot", w(h.Snapshot.PersistSnapshot))
	mux.Handle("POST /api/snapshot/reload", w(h.Snapshot.ReloadSnapshot))

	// Remote sync routes
	mux.Handle("POST /api/sync/push", w(h.Sync.Push))
	mux.Handle("POST /api/sync/pull", w(h.Sync.Pull))
	mux.HandleFunc("GET /api/remote/books", h.Sync.ListRemoteBooks)
	mux.Handle("DELETE /api/remote/books/{id}", w(h.Sync.DeleteRemoteBook))

	// App mode routes
	mux.HandleFunc("GET /api/mode", h.Mode.GetMode)
	mux.Handle("PUT /api/mode", guard(operator, h.Mode.SetMode))
}
