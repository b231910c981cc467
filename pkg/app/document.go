package app

import (
	"fmt"
	"io"
	"os"

	"github.com/mapstudio/ainb/pkg/ainb"
	"github.com/mapstudio/ainb/pkg/codec"
	"github.com/mapstudio/ainb/pkg/convert"
)

// LoadDocument reads an AINB file or a document in any supported format.
// The format of text documents comes from the file extension, falling back
// to the current profile.
func (a *App) LoadDocument(path string) (*ainb.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == convert.Stdio {
		data, err = io.ReadAll(a.InReader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if codec.Sniff(data) {
		return ainb.Parse(data)
	}

	format, ok := codec.FormatFromPath(path)
	if !ok || path == convert.Stdio {
		if format, err = codec.ParseFormat(a.CurrentProfile.EffectiveFormat()); err != nil {
			return nil, err
		}
	}
	c, err := codec.New(format, 0)
	if err != nil {
		return nil, err
	}
	return c.Unmarshal(data)
}
