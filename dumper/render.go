package dumper

import (
	"io"

	"github.com/pkg/errors"

	"gitlab.com/stephen-fox/memwalk/classinfo"
)

type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case TextFormat, JSONFormat:
		return f, nil
	default:
		return "", errors.Errorf("unsupported output format %q (supported formats: %s, %s)",
			s, TextFormat, JSONFormat)
	}
}

// Render writes the report's snapshot to w.
func (o *Report) Render(w io.Writer, format Format) error {
	var err error

	switch format {
	case TextFormat, "":
		_, err = io.WriteString(w, classinfo.Render(o.Result.Descriptors))
	case JSONFormat:
		err = classinfo.RenderJSON(w, o.Result.Descriptors)
	default:
		err = errors.Errorf("unsupported output format %q", format)
	}

	if err != nil {
		return stageErr(StageRender, err)
	}

	return nil
}
