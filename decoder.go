package formkit

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"mime"
	"mime/multipart"
)

// EventType identifies a decoder event
type EventType uint8

const (
	// EventField carries a complete text field
	EventField EventType = iota + 1
	// EventFileStart opens a file part
	EventFileStart
	// EventFileChunk carries the next bytes of the open file part
	EventFileChunk
	// EventFileEnd closes the open file part and carries the built File
	EventFileEnd
)

func (t EventType) String() string {
	switch t {
	case EventField:
		return "field"
	case EventFileStart:
		return "fileStart"
	case EventFileChunk:
		return "fileChunk"
	case EventFileEnd:
		return "fileEnd"
	default:
		return "unknown"
	}
}

// Event is one step of a decode. Name is always the raw field name.
type Event struct {
	Type   EventType
	Name   string
	Value  string     // EventField
	Header FileHeader // EventFileStart
	Chunk  []byte     // EventFileChunk, valid until the next call to Next
	File   *File      // EventFileEnd
}

// maxEmptyReads bounds consecutive (0, nil) reads of a file part
const maxEmptyReads = 100

type decoderState uint8

const (
	stateAwaitingBoundary decoderState = iota
	stateReadingHeaders
	stateReadingField
	stateReadingFile
	stateFinished
	stateFailed
)

// DecodeStats summarises a decode
type DecodeStats struct {
	Fields  int
	Files   int
	Skipped int
	Bytes   int64
}

// Decoder reads a multipart/form-data body part by part. Only the file part
// being read is held in memory; it is released once its File is built.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	body io.Reader
	mr   *multipart.Reader
	opts Options

	state decoderState
	err   error
	stats DecodeStats

	part   *multipart.Part
	header FileHeader
	buf    bytes.Buffer
	hasher hash.Hash
	chunk  []byte
	parts  int
}

// NewDecoder returns a decoder reading body with the given boundary.
func NewDecoder(body io.Reader, boundary string, opts ...Option) *Decoder {
	o := processOptions(opts...)
	return &Decoder{
		body: body,
		mr:   multipart.NewReader(body, boundary),
		opts: o,
	}
}

// Stats returns counters for the parts decoded so far
func (d *Decoder) Stats() DecodeStats {
	return d.stats
}

// Next returns the next event. It returns io.EOF once the closing boundary
// has been read and on every call after that. Any other error is terminal
// and is returned again by later calls.
//
// If ctx is cancelled while Next is blocked on the body, the body is closed
// when it implements io.Closer and Next fails with the context error.
func (d *Decoder) Next(ctx context.Context) (Event, error) {
	switch d.state {
	case stateFinished:
		return Event{}, io.EOF
	case stateFailed:
		return Event{}, d.err
	}

	if err := ctx.Err(); err != nil {
		return Event{}, d.fail(err)
	}

	stop := context.AfterFunc(ctx, d.abort)
	defer stop()

	ev, err := d.step(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return Event{}, d.fail(err)
	}
	return ev, err
}

func (d *Decoder) step(ctx context.Context) (Event, error) {
	for {
		switch d.state {
		case stateAwaitingBoundary:
			part, err := d.mr.NextRawPart()
			// a bare io.EOF means the closing boundary was read
			if err == io.EOF {
				d.state = stateFinished
				return Event{}, io.EOF
			}
			if errors.Is(err, io.EOF) {
				return Event{}, fmt.Errorf("%w: missing closing boundary", io.ErrUnexpectedEOF)
			}
			if err != nil {
				return Event{}, err
			}
			d.parts++
			if d.opts.MaxParts > 0 && d.parts > d.opts.MaxParts {
				part.Close()
				return Event{}, fmt.Errorf("%w: limit is %d", ErrTooManyParts, d.opts.MaxParts)
			}
			d.part = part
			d.state = stateReadingHeaders

		case stateReadingHeaders:
			name, filename, isFile := disposition(d.part)
			switch {
			case name == "" || (isFile && filename == ""):
				// unnamed parts and file inputs left empty carry nothing
				if _, err := io.Copy(io.Discard, d.part); err != nil {
					return Event{}, err
				}
				d.stats.Skipped++
				d.closePart()
			case isFile:
				d.header = FileHeader{
					Field:     name,
					Filename:  filename,
					Encoding:  d.part.Header.Get("Content-Transfer-Encoding"),
					MediaType: d.part.Header.Get("Content-Type"),
				}
				h, err := NewHasher(d.opts.HashAlgorithm)
				if err != nil {
					return Event{}, err
				}
				d.hasher = h
				d.buf.Reset()
				d.state = stateReadingFile
				return Event{Type: EventFileStart, Name: name, Header: d.header}, nil
			default:
				d.header = FileHeader{Field: name}
				d.state = stateReadingField
			}

		case stateReadingField:
			value, err := readLimited(d.part, d.opts.MaxFieldSize)
			if err != nil {
				if errors.Is(err, ErrFieldTooLarge) {
					err = fmt.Errorf("%w: limit is %d bytes", ErrFieldTooLarge, d.opts.MaxFieldSize)
				}
				return Event{}, err
			}
			name := d.header.Field
			d.stats.Fields++
			d.closePart()
			return Event{Type: EventField, Name: name, Value: value}, nil

		case stateReadingFile:
			return d.readFile(ctx)

		default:
			return Event{}, fmt.Errorf("decoder in state %d", d.state)
		}
	}
}

func (d *Decoder) readFile(ctx context.Context) (Event, error) {
	if d.chunk == nil {
		d.chunk = make([]byte, d.opts.ChunkSize)
	}

	for empty := 0; ; empty++ {
		if empty == maxEmptyReads {
			return Event{}, io.ErrNoProgress
		}
		n, err := d.part.Read(d.chunk)
		if n > 0 {
			if d.opts.MaxFileSize > 0 && int64(d.buf.Len()+n) > d.opts.MaxFileSize {
				return Event{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, d.opts.MaxFileSize)
			}
			chunk := d.chunk[:n]
			d.buf.Write(chunk)
			d.hasher.Write(chunk)
			d.stats.Bytes += int64(n)
			return Event{Type: EventFileChunk, Name: d.header.Field, Chunk: chunk}, nil
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Event{}, err
		}
	}

	f, err := d.buildFile(ctx)
	if err != nil {
		return Event{}, err
	}
	d.stats.Files++
	d.closePart()
	return Event{Type: EventFileEnd, Name: f.Field, File: f}, nil
}

func (d *Decoder) buildFile(ctx context.Context) (*File, error) {
	base, _ := SplitExtension(d.header.Filename)
	if d.opts.Rename != nil {
		renamed, err := d.opts.Rename(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("rename %s: %w", d.header.Filename, err)
		}
		if err := CheckName(renamed); err != nil {
			return nil, fmt.Errorf("rename %s: %w", d.header.Filename, err)
		}
		base = renamed
	}

	content := bytes.Clone(d.buf.Bytes())
	d.buf.Reset()
	sum := hex.EncodeToString(d.hasher.Sum(nil))
	d.hasher = nil
	return newFile(d.header, base, content, sum, d.opts.HashAlgorithm), nil
}

// Decode reads the whole body and merges every field and file into a new
// record in arrival order. No record is returned when any part fails.
func (d *Decoder) Decode(ctx context.Context) (*Record, error) {
	rec := NewRecord()
	for {
		ev, err := d.Next(ctx)
		if errors.Is(err, io.EOF) {
			return rec, nil
		}
		if err != nil {
			return nil, err
		}

		switch ev.Type {
		case EventField:
			err = Assign(rec, ev.Name, Text(ev.Value))
		case EventFileEnd:
			err = Assign(rec, ev.Name, FileValue(ev.File))
		}
		if err != nil {
			d.fail(err)
			return nil, err
		}
	}
}

func (d *Decoder) fail(err error) error {
	var fe *FieldError
	if !errors.As(err, &fe) {
		var se *StreamError
		if !errors.As(err, &se) {
			err = &StreamError{Field: d.header.Field, Err: err}
		}
	}
	d.state = stateFailed
	d.err = err
	d.buf.Reset()
	d.hasher = nil
	d.closePart()
	return err
}

func (d *Decoder) closePart() {
	if d.part != nil {
		d.part.Close()
		d.part = nil
	}
	if d.state != stateFailed && d.state != stateFinished {
		d.state = stateAwaitingBoundary
	}
}

func (d *Decoder) abort() {
	if c, ok := d.body.(io.Closer); ok {
		c.Close()
	}
}

// disposition reads the form field name and file name of a part. isFile is
// true whenever a filename parameter is present, even if it is empty.
func disposition(p *multipart.Part) (name, filename string, isFile bool) {
	v := p.Header.Get("Content-Disposition")
	if v == "" {
		return "", "", false
	}
	d, params, err := mime.ParseMediaType(v)
	if err != nil || d != "form-data" {
		return "", "", false
	}
	filename, isFile = params["filename"]
	return params["name"], filename, isFile
}

func readLimited(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		b, err := io.ReadAll(r)
		return string(b), err
	}
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > limit {
		return "", ErrFieldTooLarge
	}
	return string(b), nil
}
