package aws

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"moodboard/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultObjectKey = "board.csv"

// s3Store keeps the whole board as a single CSV object. Each mutation reads
// the object, rewrites the grid and puts it back; last writer wins, which
// matches the no-locking model of the other backends.
type s3Store struct {
	s3Client *s3.Client
	bucket   string
	key      string
}

// NewStore creates a new S3-based store. The object key defaults to
// board.csv and can be overridden with S3_OBJECT_KEY.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	key := os.Getenv("S3_OBJECT_KEY")
	if key == "" {
		key = defaultObjectKey
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
		key:      key,
	}
}

func (s *s3Store) ListRows(ctx context.Context) ([][]string, error) {
	return s.read(ctx)
}

func (s *s3Store) AppendRow(ctx context.Context, fields []string) error {
	rows, err := s.read(ctx)
	if err != nil {
		return err
	}
	return s.write(ctx, append(rows, fields))
}

func (s *s3Store) UpdateRow(ctx context.Context, index int, fields []string) error {
	rows, err := s.read(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	rows[index] = fields
	return s.write(ctx, rows)
}

func (s *s3Store) DeleteRow(ctx context.Context, index int) error {
	rows, err := s.read(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	rows = append(rows[:index], rows[index+1:]...)
	return s.write(ctx, rows)
}

// read fetches and parses the board object. A missing object is a fresh
// board: just the header row.
func (s *s3Store) read(ctx context.Context) ([][]string, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return [][]string{append([]string(nil), core.ColumnNames...)}, nil
		}
		return nil, fmt.Errorf("failed to get board object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read board object: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse board object: %w", err)
	}
	return rows, nil
}

func (s *s3Store) write(ctx context.Context, rows [][]string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode board object: %w", err)
	}

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to save board object: %w", err)
	}
	return nil
}
