package ai

import "context"

// BatchAPI is the provider surface the pipeline drives: upload an input file,
// create a batch over it, poll it, and download its output.
type BatchAPI interface {
	UploadFile(ctx context.Context, path string) (string, error)
	CreateBatch(ctx context.Context, inputFileID string, metadata map[string]string) (Batch, error)
	GetBatch(ctx context.Context, batchID string) (Batch, error)
	FileContent(ctx context.Context, fileID string) ([]byte, error)
}
