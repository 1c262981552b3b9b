// Package clipboard copies a merged document to the system clipboard.
package clipboard

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
)

const errorCopyDocumentFormat = "copy %s to clipboard: %w"

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	write func(string) error
}

// NewService constructs a clipboard service backed by the system clipboard.
func NewService() *Service {
	return &Service{write: clipboard.WriteAll}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	return service.write(text)
}

// CopyDocument reads the document at path and places its contents on the clipboard.
func CopyDocument(copier Copier, path string) error {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf(errorCopyDocumentFormat, path, readErr)
	}
	if err := copier.Copy(string(data)); err != nil {
		return fmt.Errorf(errorCopyDocumentFormat, path, err)
	}
	return nil
}

var _ Copier = (*Service)(nil)
