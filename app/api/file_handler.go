package api

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// FileHandler accepts document uploads into the loader source directory.
// Uploaded files are picked up by the next ingestion run.
type FileHandler struct {
	sourceDir string
}

func NewFileHandler(sourceDir string) *FileHandler {
	return &FileHandler{sourceDir: sourceDir}
}

func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest("missing form file 'file'")
	}

	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".txt", ".md", ".pdf":
	default:
		return ErrBadRequest("unsupported file type")
	}

	path := filepath.Join(h.sourceDir, filepath.Base(file.Filename))
	if err := c.SaveFile(file, path); err != nil {
		log.Printf("[UPLOAD] failed to save %s: %v", file.Filename, err)
		return ErrInternal()
	}
	log.Printf("[UPLOAD] file saved to: %s", path)

	return c.JSON(fiber.Map{"result": "ok", "file": file.Filename})
}
