package files

import (
	"time"

	"github.com/davnau/medialens/internal/file"
)

type (
	RegisterDto struct {
		FileKey    string `json:"file_key" validate:"required"`
		FileName   string `json:"file_name" validate:"required"`
		SizeBytes  int64  `json:"size_bytes" validate:"gte=0"`
		MimeType   string `json:"mime_type"`
		StorageRef string `json:"storage_ref" validate:"required,url"`
	}

	RecordDto struct {
		ID        string    `json:"id"`
		FileKey   string    `json:"file_key"`
		FileName  string    `json:"file_name"`
		SizeBytes int64     `json:"size_bytes"`
		MimeType  string    `json:"mime_type"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

func (dto RegisterDto) ToRecord() *file.Record {
	return &file.Record{
		FileKey:    dto.FileKey,
		FileName:   dto.FileName,
		SizeBytes:  dto.SizeBytes,
		MimeType:   dto.MimeType,
		StorageRef: dto.StorageRef,
	}
}

func NewRecordDto(record *file.Record) RecordDto {
	return RecordDto{
		ID:        record.ID.String(),
		FileKey:   record.FileKey,
		FileName:  record.FileName,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
