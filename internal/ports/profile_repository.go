package ports

import (
	"context"

	"github.com/Thnoxs/localy-v1/internal/domain"
)

type ProfileRepository interface {
	Get(ctx context.Context) (domain.UploadProfile, error)
	Save(ctx context.Context, profile domain.UploadProfile) error
}
