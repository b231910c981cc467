package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mapstudio/ainb/pkg/codec"
)

// Stdio is the path meaning standard input or standard output.
const Stdio = "-"

// BinaryExtension is the extension of AINB files.
const BinaryExtension = ".ainb"

// Direction selects which way a file is converted.
type Direction string

const (
	Decode Direction = "decode"
	Encode Direction = "encode"
	Auto   Direction = "auto"
)

func (d *Direction) String() string {
	return string(*d)
}

func (d *Direction) Set(v string) error {
	switch Direction(v) {
	case Decode, Encode, Auto:
		*d = Direction(v)
		return nil
	default:
		return fmt.Errorf("must be one of: decode, encode, auto")
	}
}

func (d *Direction) Type() string {
	return "Direction"
}

// Options configure a Converter.
type Options struct {
	// Format is written when decoding and read when encoding a file whose
	// extension names no format.
	Format codec.Format
	// Indent is the JSON indent width, zero for compact output.
	Indent int
	// Jobs bounds concurrent conversions in Tree. Zero uses every CPU.
	Jobs int
	// Overwrite lets Tree replace existing outputs.
	Overwrite bool
}

// Converter moves documents between files, converting them on the way.
type Converter struct {
	opts   Options
	log    logrus.FieldLogger
	stdin  io.Reader
	stdout io.Writer
	codecs map[codec.Format]*codec.Codec
}

// New returns a Converter. Standard input and output default to the
// process streams.
func New(opts Options, log logrus.FieldLogger) (*Converter, error) {
	if opts.Format == "" {
		opts.Format = codec.FormatJSON
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	c := &Converter{
		opts:   opts,
		log:    log,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		codecs: make(map[codec.Format]*codec.Codec),
	}
	for _, f := range codec.Formats() {
		cd, err := codec.New(f, opts.Indent)
		if err != nil {
			return nil, err
		}
		c.codecs[f] = cd
	}
	if _, ok := c.codecs[opts.Format]; !ok {
		return nil, fmt.Errorf("unknown format %q", opts.Format)
	}
	return c, nil
}

// WithStdio replaces the streams used for the "-" path.
func (c *Converter) WithStdio(in io.Reader, out io.Writer) *Converter {
	c.stdin = in
	c.stdout = out
	return c
}

// File converts in and writes the result to out. An empty out derives the
// output name from in; "-" reads standard input or writes standard output.
// Outputs are replaced atomically, a failed conversion leaves no file behind.
func (c *Converter) File(ctx context.Context, dir Direction, in, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := c.read(in)
	if err != nil {
		return err
	}

	if dir == Auto {
		dir = Encode
		if codec.Sniff(data) {
			dir = Decode
		}
	}

	if out == "" {
		if in == Stdio {
			out = Stdio
		} else if out, err = c.OutputPath(dir, in); err != nil {
			return err
		}
	}

	result, err := c.convert(dir, in, out, data)
	if err != nil {
		return fmt.Errorf("%s %s: %w", dir, in, err)
	}

	if err := c.write(out, result); err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"in": in, "out": out, "direction": dir}).Debug("converted")
	return nil
}

func (c *Converter) convert(dir Direction, in, out string, data []byte) ([]byte, error) {
	switch dir {
	case Decode:
		return c.codecs[c.formatOf(out)].Decode(data)
	case Encode:
		return c.codecs[c.formatOf(in)].Encode(data)
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
}

// formatOf returns the format named by a path's extension, or the
// configured format.
func (c *Converter) formatOf(path string) codec.Format {
	if path != Stdio {
		if f, ok := codec.FormatFromPath(path); ok {
			return f
		}
	}
	return c.opts.Format
}

// OutputPath derives the output name for in: decoding appends the format's
// extension (Npc.ainb becomes Npc.ainb.json) and encoding strips it again.
func (c *Converter) OutputPath(dir Direction, in string) (string, error) {
	switch dir {
	case Decode:
		return in + codec.Extension(c.opts.Format), nil
	case Encode:
		base := in
		if _, ok := codec.FormatFromPath(in); ok {
			base = strings.TrimSuffix(in, filepath.Ext(in))
		}
		if !strings.EqualFold(filepath.Ext(base), BinaryExtension) {
			base += BinaryExtension
		}
		if base == in {
			return "", fmt.Errorf("cannot derive an output name for %s", in)
		}
		return base, nil
	default:
		return "", fmt.Errorf("cannot derive an output name for direction %q", dir)
	}
}

func (c *Converter) read(path string) ([]byte, error) {
	if path == Stdio {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func (c *Converter) write(path string, data []byte) error {
	if path == Stdio {
		if _, err := c.stdout.Write(data); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}
	return WriteFileAtomic(path, data, 0644)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
