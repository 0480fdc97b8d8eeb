package policies

import (
	"context"

	"acropolis/internal/app/dto"
)

// ReceiptArchive stores a confirmed booking's receipt and returns where it
// can be downloaded.
type ReceiptArchive interface {
	ArchiveReceipt(ctx context.Context, receipt dto.Receipt) (string, error)
}
