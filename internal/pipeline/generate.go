package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/dgallion1/bondgen/internal/archive"
	"github.com/dgallion1/bondgen/internal/bond"
	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/schedule"
	"github.com/dgallion1/bondgen/internal/template"
)

// Request carries every input of one certificate run.
type Request struct {
	Template     []byte
	TemplateName string
	Maturity     []byte
	MaturityName string
	Cusip        []byte
	CusipName    string

	Numbering bond.Numbering
	// DatedDate overrides the dated date found in the maturity schedule.
	DatedDate string
	Info      template.Supplementary
}

// Hash identifies the request inputs. Two requests with the same files
// and options hash the same.
func (r Request) Hash() string {
	var b strings.Builder
	for _, part := range [][]byte{r.Template, r.Maturity, r.Cusip} {
		b.WriteString(ContentHashHex(part))
		b.WriteByte('|')
	}
	for _, s := range []string{
		r.MaturityName, r.CusipName, r.Numbering.Prefix, r.DatedDate,
		r.Info.IssuerName, r.Info.BondTitle, r.Info.ProjectName,
		r.Info.InterestDates[0], r.Info.InterestDates[1],
	} {
		b.WriteString(s)
		b.WriteByte('|')
	}
	b.WriteString(strconv.Itoa(r.Numbering.StartingNumber))
	return ContentHashHex([]byte(b.String()))
}

// Output is the result of a successful run.
type Output struct {
	Archive     []byte                     `json:"-"`
	ArchiveName string                     `json:"archive_name"`
	TagMap      *template.TagMap           `json:"tag_map"`
	Bonds       []bond.Bond                `json:"bonds"`
	Maturity    *schedule.MaturitySchedule `json:"maturity"`
	Cusip       *schedule.CusipSchedule    `json:"cusip"`
}

// Stage names one step of a run.
type Stage string

const (
	StageParseMaturity Stage = "parse_maturity"
	StageParseCusip    Stage = "parse_cusip"
	StageExtractTags   Stage = "extract_tags"
	StageAssemble      Stage = "assemble"
	StageFill          Stage = "fill"
	StageArchive       Stage = "archive"
)

// ProgressFunc is called before each stage with the output built so far.
type ProgressFunc func(stage Stage, partial *Output)

// Generate runs the whole pipeline synchronously.
func Generate(ctx context.Context, req Request) (*Output, error) {
	return Run(ctx, req, nil)
}

// Run is Generate with stage notifications. Panics raised inside a stage
// are returned as INTERNAL_ERROR.
func Run(ctx context.Context, req Request, progress ProgressFunc) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, bonderr.New(bonderr.InternalError, "generation failed unexpectedly: %v", r)
		}
	}()

	out = &Output{}
	step := func(s Stage) error {
		if err := ctx.Err(); err != nil {
			return bonderr.Wrap(bonderr.InternalError, err, "generation cancelled before %s", s)
		}
		if progress != nil {
			progress(s, out)
		}
		return nil
	}

	format := template.Format(template.OOXML{})
	if req.TemplateName != "" {
		if format, err = template.FormatFor(req.TemplateName); err != nil {
			return nil, err
		}
	}

	if err := step(StageParseMaturity); err != nil {
		return nil, err
	}
	if out.Maturity, err = schedule.ParseMaturity(req.Maturity, req.MaturityName); err != nil {
		return nil, err
	}

	if err := step(StageParseCusip); err != nil {
		return nil, err
	}
	if out.Cusip, err = schedule.ParseCusip(req.Cusip, req.CusipName); err != nil {
		return nil, err
	}

	if err := step(StageExtractTags); err != nil {
		return nil, err
	}
	if out.TagMap, err = template.Extract(format, req.Template); err != nil {
		return nil, err
	}

	if err := step(StageAssemble); err != nil {
		return nil, err
	}
	dated := req.DatedDate
	if dated == "" {
		dated = out.Maturity.DatedDate
	}
	out.Bonds, err = bond.Assemble(out.Maturity.Rows, out.Cusip.Rows, bond.Options{
		Numbering: req.Numbering,
		DatedDate: dated,
	})
	if err != nil {
		return nil, err
	}

	if err := step(StageFill); err != nil {
		return nil, err
	}
	filler := &template.Filler{Format: format}
	files, err := filler.FillAll(req.Template, out.Bonds, req.Info)
	if err != nil {
		return nil, err
	}

	if err := step(StageArchive); err != nil {
		return nil, err
	}
	if out.Archive, err = archive.Assemble(files); err != nil {
		return nil, err
	}
	out.ArchiveName = archive.Name(req.Info.IssuerName, out.Bonds[0].Series)
	return out, nil
}

// PreviewOutput is the first certificate of a run rendered as text.
type PreviewOutput struct {
	Bond     bond.Bond        `json:"bond"`
	Lines    []string         `json:"lines"`
	TagMap   *template.TagMap `json:"tag_map"`
	Total    int              `json:"total_bonds"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Preview validates every input like Generate but fills only the first
// bond and returns its text.
func Preview(ctx context.Context, req Request) (res *PreviewOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, bonderr.New(bonderr.InternalError, "preview failed unexpectedly: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, bonderr.Wrap(bonderr.InternalError, err, "preview cancelled")
	}
	format := template.Format(template.OOXML{})
	if req.TemplateName != "" {
		if format, err = template.FormatFor(req.TemplateName); err != nil {
			return nil, err
		}
	}

	mat, err := schedule.ParseMaturity(req.Maturity, req.MaturityName)
	if err != nil {
		return nil, err
	}
	cus, err := schedule.ParseCusip(req.Cusip, req.CusipName)
	if err != nil {
		return nil, err
	}
	tags, err := template.Extract(format, req.Template)
	if err != nil {
		return nil, err
	}
	dated := req.DatedDate
	if dated == "" {
		dated = mat.DatedDate
	}
	bonds, err := bond.Assemble(mat.Rows, cus.Rows, bond.Options{Numbering: req.Numbering, DatedDate: dated})
	if err != nil {
		return nil, err
	}

	filler := &template.Filler{Format: format}
	doc, err := filler.Fill(req.Template, bonds[0], req.Info)
	if err != nil {
		return nil, err
	}
	lines, err := template.Preview(doc)
	if err != nil {
		return nil, err
	}

	var warnings []string
	warnings = append(warnings, mat.Warnings...)
	warnings = append(warnings, cus.Warnings...)
	return &PreviewOutput{Bond: bonds[0], Lines: lines, TagMap: tags, Total: len(bonds), Warnings: warnings}, nil
}
