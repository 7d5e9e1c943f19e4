package stores

import (
	"context"
	"os"

	"moodboard/core"
	"moodboard/stores/aws"
	"moodboard/stores/filesystem"
	"moodboard/stores/memory"
	"moodboard/stores/sheets"
	"moodboard/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore selects the row store backend from STORAGE_TYPE. A backend whose
// required configuration is missing degrades to the unavailable store, so
// the board stays readable (empty) instead of crashing or erroring per call.
func GetStore() core.RowStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.RowStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "sheets":
		spreadsheetID := os.Getenv("SPREADSHEET_ID")
		if spreadsheetID == "" {
			return unavailable("SPREADSHEET_ID environment variable is not set")
		}
		storageField["spreadsheetID"] = spreadsheetID
		s, err := sheets.NewStore(spreadsheetID)
		if err != nil {
			return unavailable("sheets credentials unavailable: " + err.Error())
		}
		store = s
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "moodboard.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	case "filesystem":
		path := os.Getenv("LOCAL_STORAGE_PATH")
		if path == "" {
			path = "./data/board.csv" // Default path
		}
		storageField["path"] = path
		store = filesystem.NewStore(path)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			return unavailable("S3_BUCKET_NAME environment variable is not set")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}

func unavailable(reason string) core.RowStore {
	logrus.WithField("reason", reason).Warn("Storage unavailable, writes disabled")
	return &unavailableStore{}
}

// unavailableStore stands in when the configured backend cannot be built.
// Every operation reports the storage-unavailable condition; the service
// turns that into an empty board for reads and a 503 for writes.
type unavailableStore struct{}

func (s *unavailableStore) ListRows(ctx context.Context) ([][]string, error) {
	return nil, core.ErrStorageUnavailable
}

func (s *unavailableStore) AppendRow(ctx context.Context, fields []string) error {
	return core.ErrStorageUnavailable
}

func (s *unavailableStore) UpdateRow(ctx context.Context, index int, fields []string) error {
	return core.ErrStorageUnavailable
}

func (s *unavailableStore) DeleteRow(ctx context.Context, index int) error {
	return core.ErrStorageUnavailable
}
