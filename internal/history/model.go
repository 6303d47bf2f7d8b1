package history

import (
	"time"

	"github.com/avareg/quickscan/pkg/types"
)

// ScanRun is one persisted scan of a whole image list.
type ScanRun struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	ImagesScanned  int
	AnyFailure     bool
	TotalElapsedMS int64
	Rows           []CheckRow  `gorm:"foreignKey:ScanRunID"`
	DetailedRows   []DetailRow `gorm:"foreignKey:ScanRunID"`
}

// CheckRow is one persisted check result.
type CheckRow struct {
	ID            uint `gorm:"primaryKey;autoIncrement"`
	ScanRunID     uint `gorm:"index"`
	ImageName     string
	Tag           string
	CheckName     string
	Status        string
	ModifiedFiles string
}

// DetailRow is one persisted detailed-check record.
type DetailRow struct {
	ID               uint `gorm:"primaryKey;autoIncrement"`
	ScanRunID        uint `gorm:"index"`
	ImageName        string
	Tag              string
	Name             string
	ElapsedTime      string
	Description      string
	Help             string
	Suggestion       string
	KnowledgeBaseURL string
	CheckURL         string
}

// newScanRun maps an aggregate into its persisted form.
func newScanRun(agg *types.AggregateResult) *ScanRun {
	run := &ScanRun{
		ImagesScanned:  agg.ImagesScanned,
		AnyFailure:     agg.AnyFailure,
		TotalElapsedMS: agg.TotalElapsed.Milliseconds(),
	}
	for _, row := range agg.Rows {
		run.Rows = append(run.Rows, CheckRow{
			ImageName:     row.ImageName,
			Tag:           row.Tag,
			CheckName:     row.CheckName,
			Status:        string(row.Status),
			ModifiedFiles: row.ModifiedFiles,
		})
	}
	for _, d := range agg.DetailedRows {
		run.DetailedRows = append(run.DetailedRows, DetailRow{
			ImageName:        d.ImageName,
			Tag:              d.Tag,
			Name:             d.Name,
			ElapsedTime:      d.ElapsedTime,
			Description:      d.Description,
			Help:             d.Help,
			Suggestion:       d.Suggestion,
			KnowledgeBaseURL: d.KnowledgeBaseURL,
			CheckURL:         d.CheckURL,
		})
	}
	return run
}
