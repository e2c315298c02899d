package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"docvault/internal/model"
	"docvault/internal/notify"
	"docvault/internal/service"
)

// userIDHeader carries the authenticated user identity, set by the upstream
// auth proxy. Token validation happens there, not in this service.
const userIDHeader = "X-User-ID"

func requesterID(c *fiber.Ctx) string {
	return c.Get(userIDHeader)
}

type shareRequest struct {
	AccessLevel string `json:"access_level"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type grantRequest struct {
	UserID     string     `json:"user_id"`
	Capability string     `json:"capability"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type folderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

type moveRequest struct {
	FolderID *string `json:"folder_id"`
}

type settingsRequest struct {
	MaxStoragePerUser   int64 `json:"max_storage_per_user"`
	TrashRetentionHours int   `json:"trash_retention_hours"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers parse, authorize and delegate; business rules live in the
// service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentLifecycle, perms service.PermissionRegistry, folders service.FolderCatalog, settings service.SettingsService, hub *notify.Hub) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Backward-compatible simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Prometheus metrics, bridged from net/http
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	// Share-event subscription stream
	if hub != nil {
		app.Get("/ws", notify.UpgradeRequired, hub.Handler())
	}

	// List active documents; optional owner scope and title search
	app.Get("/documents", func(c *fiber.Ctx) error {
		limit, offset := pagination(c)
		res, err := docSvc.ListActive(c.UserContext(), c.Query("owner"), c.Query("search"), c.Query("folder"), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	// Upload document endpoint (multipart/form-data, field name: file)
	app.Post("/documents", func(c *fiber.Ctx) error {
		owner := requesterID(c)
		if owner == "" {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "user identity required")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := docSvc.Upload(c.UserContext(), owner, c.FormValue("title"), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	// Static listing variants, registered before the :id routes.
	app.Get("/documents/recent", func(c *fiber.Ctx) error {
		limit, offset := pagination(c)
		res, err := docSvc.ListRecent(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	app.Get("/documents/shared", func(c *fiber.Ctx) error {
		limit, offset := pagination(c)
		res, err := docSvc.ListShared(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	app.Get("/documents/trash", func(c *fiber.Ctx) error {
		limit, offset := pagination(c)
		res, err := docSvc.ListTrash(c.UserContext(), c.Query("owner"), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	app.Get("/documents/stats", func(c *fiber.Ctx) error {
		st, err := docSvc.Stats(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(st)
	})

	app.Get("/documents/activities", func(c *fiber.Ctx) error {
		limit, offset := pagination(c)
		res, err := docSvc.Activities(c.UserContext(), c.Query("document_id"), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	// Get document by ID
	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		user := requesterID(c)
		ok, err := perms.CanAccess(c.UserContext(), doc, user, model.CapabilityView)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !ok {
			return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "no view permission")
		}
		if user != doc.OwnerID {
			docSvc.RecordView(c.UserContext(), doc, user, model.ActionViewed)
		}
		return c.JSON(doc)
	})

	// Rename document
	app.Put("/documents/:id", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		var req renameRequest
		if err := c.BodyParser(&req); err != nil || req.Title == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "title is required")
		}
		updated, err := docSvc.Rename(c.UserContext(), doc.ID, req.Title, requesterID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(updated)
	})

	// Soft-delete: move document to trash
	app.Delete("/documents/:id", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		if err := docSvc.SoftDelete(c.UserContext(), doc.ID, requesterID(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Restore from trash
	app.Put("/documents/:id/restore", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		restored, err := docSvc.Restore(c.UserContext(), doc.ID, requesterID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(restored)
	})

	// Permanent delete; only valid from the trash
	app.Delete("/documents/:id/permanent", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		if err := docSvc.Purge(c.UserContext(), doc.ID, requesterID(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "document permanently deleted"})
	})

	// Make document public with an access level
	app.Put("/documents/:id/share", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		var req shareRequest
		_ = c.BodyParser(&req)
		level := model.ShareViewOnly
		if req.AccessLevel == "download" {
			level = model.ShareViewAndDownload
		}
		shared, err := docSvc.Share(c.UserContext(), doc.ID, level, requesterID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(shared)
	})

	// Authenticated download: presigned URL
	app.Get("/documents/:id/download", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		user := requesterID(c)
		ok, err := perms.CanAccess(c.UserContext(), doc, user, model.CapabilityDownload)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !ok {
			return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "no download permission")
		}
		u, err := docSvc.PresignDownload(c.UserContext(), doc, user)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": u})
	})

	// Grant a capability on a document
	app.Post("/documents/:id/permissions", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		var req grantRequest
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "user_id is required")
		}
		capability, ok := parseCapability(req.Capability)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CAPABILITY", "capability must be VIEW, EDIT or DOWNLOAD")
		}
		g, err := perms.Grant(c.UserContext(), doc.ID, req.UserID, capability, requesterID(c), req.ExpiresAt)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(g)
	})

	// List grants on a document
	app.Get("/documents/:id/permissions", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		gs, err := perms.ListForDocument(c.UserContext(), doc.ID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": gs})
	})

	// Revoke one capability, or all of a user's grants when none is given
	app.Delete("/documents/:id/permissions/:userId", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		target := c.Params("userId")
		if raw := c.Query("capability"); raw != "" {
			capability, ok := parseCapability(raw)
			if !ok {
				return writeError(c, fiber.StatusBadRequest, "INVALID_CAPABILITY", "capability must be VIEW, EDIT or DOWNLOAD")
			}
			if err := perms.Revoke(c.UserContext(), doc.ID, target, capability, requesterID(c)); err != nil {
				return writeServiceError(c, err)
			}
		} else if err := perms.RevokeAll(c.UserContext(), doc.ID, target, requesterID(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Move a document into a folder; folder_id null files it back at the root
	app.Put("/documents/:id/folder", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if ok, err := requireEdit(c, perms, doc); !ok {
			return err
		}
		var req moveRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := folders.MoveDocument(c.UserContext(), doc.ID, req.FolderID); err != nil {
			return writeServiceError(c, err)
		}
		moved, err := docSvc.Get(c.UserContext(), doc.ID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(moved)
	})

	// Create a folder
	app.Post("/folders", func(c *fiber.Ctx) error {
		owner := requesterID(c)
		if owner == "" {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "user identity required")
		}
		var req folderRequest
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "name is required")
		}
		f, err := folders.Create(c.UserContext(), owner, req.Name, req.ParentID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(f)
	})

	// List folders; optional owner scope
	app.Get("/folders", func(c *fiber.Ctx) error {
		fs, err := folders.List(c.UserContext(), c.Query("owner"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": fs})
	})

	app.Get("/folders/:id", func(c *fiber.Ctx) error {
		f, err := findFolder(c, folders)
		if f == nil {
			return err
		}
		return c.JSON(f)
	})

	// Rename or reparent a folder; owner only
	app.Put("/folders/:id", func(c *fiber.Ctx) error {
		f, err := findFolder(c, folders)
		if f == nil {
			return err
		}
		if ok, err := requireFolderOwner(c, f); !ok {
			return err
		}
		var req folderRequest
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "name is required")
		}
		updated, err := folders.Update(c.UserContext(), f.ID, req.Name, req.ParentID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(updated)
	})

	// Delete a folder; its documents fall back to the root
	app.Delete("/folders/:id", func(c *fiber.Ctx) error {
		f, err := findFolder(c, folders)
		if f == nil {
			return err
		}
		if ok, err := requireFolderOwner(c, f); !ok {
			return err
		}
		if err := folders.Delete(c.UserContext(), f.ID); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Operator settings surface. Reads seed the defaults; edits apply on the
	// next restart, when the enforcement values bind from configuration.
	app.Get("/settings", func(c *fiber.Ctx) error {
		st, err := settings.Get(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(st)
	})

	app.Put("/settings", func(c *fiber.Ctx) error {
		if requesterID(c) == "" {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "user identity required")
		}
		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		st, err := settings.Update(c.UserContext(), req.MaxStoragePerUser, req.TrashRetentionHours)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(st)
	})

	// Public share view: no authentication, PUBLIC visibility required
	app.Get("/shared/:id", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if doc.Visibility != model.VisibilityPublic || doc.Trashed() {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}
		docSvc.RecordView(c.UserContext(), doc, "", model.ActionSharedView)
		return c.JSON(fiber.Map{
			"id":             doc.ID,
			"title":          doc.Title,
			"content_type":   doc.ContentType,
			"size":           doc.Size,
			"allow_download": doc.AllowsDownload(),
		})
	})

	// Public share download: rejected for VIEW_ONLY shares
	app.Get("/shared/:id/download", func(c *fiber.Ctx) error {
		doc, err := findDocument(c, docSvc)
		if doc == nil {
			return err
		}
		if doc.Visibility != model.VisibilityPublic || doc.Trashed() {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}
		if !doc.AllowsDownload() {
			return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "share does not allow download")
		}
		u, err := docSvc.PresignDownload(c.UserContext(), doc, "")
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": u})
	})
}

// findDocument parses and validates the :id param and loads the document.
// On failure it writes the error response itself and returns a nil document;
// the handler should return the accompanying error as-is.
func findDocument(c *fiber.Ctx, docSvc service.DocumentLifecycle) (*model.Document, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	doc, err := docSvc.Get(c.UserContext(), id)
	if err != nil {
		return nil, writeServiceError(c, err)
	}
	return doc, nil
}

// findFolder parses the :id param and loads the folder, writing the error
// response itself on failure, like findDocument.
func findFolder(c *fiber.Ctx, folders service.FolderCatalog) (*model.Folder, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	f, err := folders.Get(c.UserContext(), id)
	if err != nil {
		return nil, writeServiceError(c, err)
	}
	return f, nil
}

// requireFolderOwner restricts folder mutations to the folder's owner.
func requireFolderOwner(c *fiber.Ctx, f *model.Folder) (bool, error) {
	user := requesterID(c)
	if user == "" {
		return false, writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "user identity required")
	}
	if user != f.OwnerID {
		return false, writeError(c, fiber.StatusForbidden, "FORBIDDEN", "not the folder owner")
	}
	return true, nil
}

// requireEdit enforces owner-or-EDIT-grant on mutating routes. When the
// check fails the response is already written and ok is false.
func requireEdit(c *fiber.Ctx, perms service.PermissionRegistry, doc *model.Document) (bool, error) {
	user := requesterID(c)
	if user == "" {
		return false, writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "user identity required")
	}
	ok, err := perms.CanAccess(c.UserContext(), doc, user, model.CapabilityEdit)
	if err != nil {
		return false, writeServiceError(c, err)
	}
	if !ok {
		return false, writeError(c, fiber.StatusForbidden, "FORBIDDEN", "no edit permission")
	}
	return true, nil
}

// pagination parses limit and offset, falling back to defaults on garbage.
func pagination(c *fiber.Ctx) (int, int) {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseCapability(raw string) (model.Capability, bool) {
	switch model.Capability(raw) {
	case model.CapabilityView, model.CapabilityEdit, model.CapabilityDownload:
		return model.Capability(raw), true
	default:
		return "", false
	}
}
