package batch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/aspect-export/internal/domain"
)

// RenderFileName expands the batch's file name template, or builds the
// default `aspect_<schema>_<Ymd_His>_<batchID>.<ext>` name when no template
// is set. Templates are operator-controlled and used verbatim apart from
// variable substitution, extension included. The schema name is lowercased
// with spaces replaced by underscores wherever it appears in a file name.
func RenderFileName(b *domain.Batch, sc *domain.Schema, now time.Time) string {
	schemaName := strings.ReplaceAll(strings.ToLower(sc.Name), " ", "_")

	if b.FileNameTemplate == "" {
		return fmt.Sprintf("aspect_%s_%s_%s.%s",
			schemaName, now.Format("20060102_150405"), b.ID, sc.FileExtension)
	}

	r := strings.NewReplacer(
		"{date}", now.Format("20060102"),
		"{datetime}", now.Format("20060102_150405"),
		"{timestamp}", strconv.FormatInt(now.Unix(), 10),
		"{batch_id}", b.ID,
		"{campaign_id}", b.CampaignID,
		"{schema_name}", schemaName,
		"{year}", now.Format("2006"),
		"{month}", now.Format("01"),
		"{day}", now.Format("02"),
		"{hour}", now.Format("15"),
		"{minute}", now.Format("04"),
		"{second}", now.Format("05"),
	)
	return r.Replace(b.FileNameTemplate)
}
