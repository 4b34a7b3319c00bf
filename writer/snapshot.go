package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "fundflow/config"
	"fundflow/logger"
	"fundflow/models"
)

// EarningRecord is one classified ledger entry flattened for the parquet
// snapshot. Amounts are exact decimals in memory; the export trades precision
// for a column type every downstream tool can read.
type EarningRecord struct {
	CycleID        string  `parquet:"name=cycle_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp      int64   `parquet:"name=timestamp, type=INT64"`
	Currency       string  `parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount         float64 `parquet:"name=amount, type=DOUBLE"`
	Classification string  `parquet:"name=classification, type=BYTE_ARRAY, convertedtype=UTF8"`
	Rule           string  `parquet:"name=rule, type=BYTE_ARRAY, convertedtype=UTF8"`
	Description    string  `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// BucketRecord is one daily income bucket in the snapshot.
type BucketRecord struct {
	CycleID  string  `parquet:"name=cycle_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date     string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Income   float64 `parquet:"name=income, type=DOUBLE"`
	DailyAPY float64 `parquet:"name=daily_apy, type=DOUBLE"`
}

// SnapshotWriter persists one report per refresh cycle as parquet, to a local
// directory, an S3 bucket, or both. It is synchronous: a cycle produces at
// most two small files and the caller decides whether a write failure matters.
type SnapshotWriter struct {
	cfg      *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

func NewSnapshotWriter(cfg *appconfig.Config) (*SnapshotWriter, error) {
	log := logger.GetLogger()
	w := &SnapshotWriter{cfg: cfg, log: log}

	if cfg.Storage.S3.Enabled {
		loadOpts := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Storage.S3.Region),
		}
		if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.Storage.S3.AccessKeyID,
					cfg.Storage.S3.SecretAccessKey,
					"",
				),
			))
		}

		awsConfig, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}

		w.s3Client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Storage.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
			}
			o.UsePathStyle = cfg.Storage.S3.PathStyle
		})

		log.WithComponent("snapshot_writer").WithFields(logger.Fields{
			"bucket":     cfg.Storage.S3.Bucket,
			"region":     cfg.Storage.S3.Region,
			"path_style": cfg.Storage.S3.PathStyle,
		}).Info("snapshot writer initialized with s3 target")
	}

	return w, nil
}

// Write persists the report's classified entries and daily buckets. Local and
// S3 targets are independent; the first failure is returned but a failed
// snapshot never invalidates the cycle that produced it.
func (w *SnapshotWriter) Write(ctx context.Context, report *models.Report) error {
	log := w.log.WithComponent("snapshot_writer").WithFields(logger.Fields{"cycle_id": report.CycleID})

	earnings, err := buildEarningsFile(report)
	if err != nil {
		return fmt.Errorf("failed to build earnings snapshot: %w", err)
	}
	buckets, err := buildBucketsFile(report)
	if err != nil {
		return fmt.Errorf("failed to build buckets snapshot: %w", err)
	}

	files := map[string][]byte{
		snapshotKey(report, "earnings"): earnings,
		snapshotKey(report, "buckets"):  buckets,
	}

	if w.cfg.Storage.Snapshot.Enabled && w.cfg.Storage.Snapshot.Dir != "" {
		for key, data := range files {
			path := filepath.Join(w.cfg.Storage.Snapshot.Dir, filepath.FromSlash(key))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create snapshot directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write snapshot file: %w", err)
			}
			log.WithFields(logger.Fields{"path": path, "size": len(data)}).Info("snapshot written")
		}
	}

	if w.s3Client != nil {
		for key, data := range files {
			if err := w.uploadToS3(ctx, key, data); err != nil {
				return err
			}
		}
	}

	return nil
}

func snapshotKey(report *models.Report, kind string) string {
	return fmt.Sprintf("date=%s/fundflow_%s_%s_%s.parquet",
		report.AsOf.UTC().Format("2006-01-02"),
		kind,
		report.AsOf.UTC().Format("20060102150405"),
		report.CycleID)
}

func buildEarningsFile(report *models.Report) ([]byte, error) {
	records := make([]interface{}, 0, len(report.Entries))
	for _, entry := range report.Entries {
		amount, _ := entry.Entry.Amount.Float64()
		records = append(records, EarningRecord{
			CycleID:        report.CycleID,
			Timestamp:      entry.Entry.Timestamp.UnixMilli(),
			Currency:       entry.Entry.Currency,
			Amount:         amount,
			Classification: string(entry.Classification),
			Rule:           entry.Rule,
			Description:    entry.Entry.Description,
		})
	}
	return createParquetFile(new(EarningRecord), records)
}

func buildBucketsFile(report *models.Report) ([]byte, error) {
	records := make([]interface{}, 0, len(report.Buckets))
	for _, bucket := range report.Buckets {
		income, _ := bucket.Income.Float64()
		apy, _ := bucket.DailyAPY.Float64()
		records = append(records, BucketRecord{
			CycleID:  report.CycleID,
			Date:     bucket.Date.UTC().Format("2006-01-02"),
			Income:   income,
			DailyAPY: apy,
		})
	}
	return createParquetFile(new(BucketRecord), records)
}

func createParquetFile(schema interface{}, records []interface{}) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, schema, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	for _, record := range records {
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}

func (w *SnapshotWriter) uploadToS3(ctx context.Context, key string, data []byte) error {
	if w.cfg.Storage.S3.Prefix != "" {
		key = w.cfg.Storage.S3.Prefix + "/" + key
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":     "parquet",
			"fundflow-version": w.cfg.Fundflow.Version,
		},
	}

	if _, err := w.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.cfg.Storage.S3.Bucket, err)
	}

	w.log.WithComponent("snapshot_writer").WithFields(logger.Fields{
		"s3_key":    key,
		"data_size": len(data),
	}).Info("snapshot uploaded")
	return nil
}
