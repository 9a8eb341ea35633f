package core

import "context"

// PageRecognizer returns the raw recognized text of one scanned page image.
type PageRecognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}
