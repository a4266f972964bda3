package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"product-ledger/internal/report"
	"product-ledger/internal/repository"
	"product-ledger/internal/storage"
)

// ReportService renders the product ledger of a user as a PDF document and
// exposes the archive of previously generated reports.
type ReportService interface {
	Generate(ctx context.Context, callerID, username string) ([]byte, error)
	ListArchived(ctx context.Context, callerID, username string) ([]storage.ObjectInfo, error)
}

// ArchiveOptions configures optional upload of generated reports to object
// storage. A nil storage service disables archival.
type ArchiveOptions struct {
	Storage   storage.Service
	Bucket    string
	KeyPrefix string
}

type reportService struct {
	users   repository.UserRepository
	archive ArchiveOptions
	logger  *logrus.Logger
}

func NewReportService(users repository.UserRepository, archive ArchiveOptions, logger *logrus.Logger) ReportService {
	return &reportService{
		users:   users,
		archive: archive,
		logger:  logger,
	}
}

func (s *reportService) Generate(ctx context.Context, callerID, username string) ([]byte, error) {
	user, err := resolveOwner(ctx, s.users, callerID, username)
	if err != nil {
		return nil, err
	}

	data, err := report.Render(user)
	if err != nil {
		return nil, err
	}

	// archival is best effort, a storage hiccup must not fail the download
	if s.archive.Storage != nil && s.archive.Bucket != "" {
		key := path.Join(s.archive.KeyPrefix, user.Email,
			fmt.Sprintf("Products-%s.pdf", time.Now().UTC().Format("20060102T150405Z")))
		if location, err := s.archive.Storage.PutReport(ctx, s.archive.Bucket, key, data); err != nil {
			s.logger.Warnf("archive report for %s: %v", user.Email, err)
		} else {
			s.logger.Infof("archived report at %s", location)
		}
	}

	return data, nil
}

// ListArchived returns the previously archived reports for a user's ledger.
// With no archive configured the list is simply empty.
func (s *reportService) ListArchived(ctx context.Context, callerID, username string) ([]storage.ObjectInfo, error) {
	user, err := resolveOwner(ctx, s.users, callerID, username)
	if err != nil {
		return nil, err
	}

	if s.archive.Storage == nil || s.archive.Bucket == "" {
		return []storage.ObjectInfo{}, nil
	}

	prefix := path.Join(s.archive.KeyPrefix, user.Email) + "/"
	objects, err := s.archive.Storage.ListObjects(ctx, s.archive.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list archived reports: %w", err)
	}
	if objects == nil {
		objects = []storage.ObjectInfo{}
	}
	return objects, nil
}
