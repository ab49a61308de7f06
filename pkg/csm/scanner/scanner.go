package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mercator-hq/csmlog/pkg/csm/check"
	csmerrors "mercator-hq/csmlog/pkg/csm/errors"
	"mercator-hq/csmlog/pkg/csm/logline"
)

// Block markers as logged by Firefox.
const (
	BeginMarker = "#DebugDoContentSecurityCheck Begin"
	EndMarker   = "#DebugDoContentSecurityCheck End"
)

const (
	// DefaultMaxLineSize bounds a single input line.
	DefaultMaxLineSize = 1024 * 1024

	// cancelCheckInterval is how many lines are read between context checks.
	cancelCheckInterval = 1024
)

// Block is the payload collected between a begin and an end marker.
type Block struct {
	Lines       []string           // Payload lines in order
	LineNumbers []int              // Input line of each payload line
	BeginLine   int                // Line of the begin marker
	EndLine     int                // Line of the end marker, 0 while open
	Tag         logline.ProcessTag // Last process tag seen in the block
}

// BlockDecoder turns a closed block into a check.
type BlockDecoder interface {
	DecodeBlock(b *Block) (*check.ContentSecurityCheck, error)
}

// CheckDecoder is the BlockDecoder backed by check.Decoder.
type CheckDecoder struct {
	Decoder *check.Decoder
}

// DecodeBlock implements BlockDecoder.
func (d CheckDecoder) DecodeBlock(b *Block) (*check.ContentSecurityCheck, error) {
	dec := d.Decoder
	if dec == nil {
		dec = check.NewDecoder()
	}
	c, err := dec.DecodeCheck(b.Lines, b.LineNumbers, b.Tag)
	if err != nil {
		return nil, err
	}
	c.Line = b.BeginLine
	return c, nil
}

// Options configures a Scanner.
type Options struct {
	// Source names the input in diagnostics, e.g. a file path or "-".
	Source string

	// MaxLineSize is the longest line kept. Longer lines are skipped and,
	// inside a block, fail that block. Defaults to DefaultMaxLineSize.
	MaxLineSize int

	// Decoder decodes closed blocks. Defaults to CheckDecoder.
	Decoder BlockDecoder

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Stats counts what a scan saw.
type Stats struct {
	Lines        int `json:"lines"`
	Blocks       int `json:"blocks"`
	Decoded      int `json:"decoded"`
	Failed       int `json:"failed"`
	Unterminated int `json:"unterminated"`
	Unclassified int `json:"unclassified"`
	Oversized    int `json:"oversized"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Lines += other.Lines
	s.Blocks += other.Blocks
	s.Decoded += other.Decoded
	s.Failed += other.Failed
	s.Unterminated += other.Unterminated
	s.Unclassified += other.Unclassified
	s.Oversized += other.Oversized
}

// Result is the output of one scan.
type Result struct {
	Checks      []*check.ContentSecurityCheck
	Diagnostics *csmerrors.ErrorList
	Stats       Stats
}

// Scanner finds content security check blocks in a log and decodes them.
type Scanner struct {
	source      string
	maxLineSize int
	decoder     BlockDecoder
	logger      *slog.Logger
}

// New creates a scanner.
func New(opts Options) *Scanner {
	s := &Scanner{
		source:      opts.Source,
		maxLineSize: opts.MaxLineSize,
		decoder:     opts.Decoder,
		logger:      opts.Logger,
	}
	if s.maxLineSize <= 0 {
		s.maxLineSize = DefaultMaxLineSize
	}
	if s.decoder == nil {
		s.decoder = CheckDecoder{Decoder: check.NewDecoder()}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "csm.scanner", "source", s.source)
	return s
}

// state is the per-scan state machine.
type state struct {
	s      *Scanner
	result *Result
	block  *Block // nil while outside a block
}

// Scan reads r to the end and returns the decoded checks in input order.
//
// Malformed lines and blocks are recorded as diagnostics and never stop the
// scan. The returned error is non-nil only when r cannot be read or ctx is
// cancelled; the partial result is returned alongside it.
func (s *Scanner) Scan(ctx context.Context, r io.Reader) (*Result, error) {
	st := &state{
		s: s,
		result: &Result{
			Checks:      make([]*check.ContentSecurityCheck, 0),
			Diagnostics: csmerrors.NewErrorList(),
		},
	}

	br := bufio.NewReaderSize(r, min(64*1024, s.maxLineSize))

	var (
		buf     []byte
		lineNum int
	)
	for {
		line, oversized, err := readLine(br, buf[:0], s.maxLineSize)
		buf = line
		if len(line) > 0 || oversized || err == nil {
			lineNum++
			if lineNum%cancelCheckInterval == 0 {
				if cerr := ctx.Err(); cerr != nil {
					st.result.Stats.Lines = lineNum
					return st.result, cerr
				}
			}
			if oversized {
				st.oversized(lineNum)
			} else {
				st.line(lineNum, string(bytes.TrimSuffix(line, []byte("\n"))))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			st.result.Stats.Lines = lineNum
			e := &csmerrors.Error{
				Type:     csmerrors.ErrorTypeIO,
				Message:  fmt.Sprintf("reading input: %v", err),
				Location: csmerrors.Location{Source: s.source, Line: lineNum + 1},
				Cause:    err,
			}
			st.result.Diagnostics.Add(e)
			return st.result, e
		}
	}
	st.result.Stats.Lines = lineNum

	if st.block != nil {
		st.unterminated("input ended inside a block")
	}

	return st.result, nil
}

// readLine reads up to and including the next newline into buf. A line
// longer than limit bytes is consumed to its end but not kept; oversized is
// reported instead and the returned slice is empty.
func readLine(br *bufio.Reader, buf []byte, limit int) ([]byte, bool, error) {
	oversized := false
	for {
		frag, err := br.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(frag) > limit+1 {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, frag...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if !oversized && len(bytes.TrimSuffix(buf, []byte("\n"))) > limit {
			oversized = true
			buf = buf[:0]
		}
		return buf, oversized, err
	}
}

// line feeds one raw line through the state machine.
func (st *state) line(num int, raw string) {
	raw = strings.TrimSuffix(raw, "\r")
	classified, tagged := logline.Classify(raw)

	marker := strings.TrimSpace(raw)
	if tagged {
		marker = strings.TrimSpace(classified.Payload)
	}

	switch {
	case marker == BeginMarker:
		if st.block != nil {
			st.unterminated("begin marker inside a block")
		}
		st.block = &Block{BeginLine: num, Tag: classified.Tag}
		st.result.Stats.Blocks++

	case st.block == nil:
		// Outside a block everything else is noise.

	case marker == EndMarker:
		st.block.EndLine = num
		st.close()

	case !tagged:
		st.result.Stats.Unclassified++
		st.diagnose(&csmerrors.Error{
			Type:     csmerrors.ErrorTypeUnclassifiedLine,
			Message:  "line inside block does not carry the CSMLog tag",
			Location: csmerrors.Location{Line: num},
			Context:  csmerrors.BlockContext([]string{raw}, []int{num}, 0),
		})

	default:
		st.block.Lines = append(st.block.Lines, classified.Payload)
		st.block.LineNumbers = append(st.block.LineNumbers, num)
		st.block.Tag = classified.Tag
	}
}

// close decodes the open block and resets the state.
func (st *state) close() {
	b := st.block
	st.block = nil

	c, err := st.s.decoder.DecodeBlock(b)
	if err != nil {
		st.result.Stats.Failed++
		var e *csmerrors.Error
		if !errors.As(err, &e) {
			e = &csmerrors.Error{
				Type:     csmerrors.ErrorTypeSyntax,
				Message:  err.Error(),
				Location: csmerrors.Location{Line: b.BeginLine},
				Cause:    err,
			}
			csmerrors.WithContext(e, b.Lines, b.LineNumbers)
		}
		if !e.Location.IsValid() {
			e.Location.Line = b.BeginLine
		}
		st.diagnose(e)
		return
	}

	c.Source = st.s.source
	st.result.Stats.Decoded++
	st.result.Checks = append(st.result.Checks, c)
	st.s.logger.Debug("decoded content security check",
		"line", b.BeginLine,
		"channel_uri", c.ChannelURI,
		"process", c.ProcessType.String(),
	)
}

// oversized handles a line longer than the configured maximum. Outside a
// block it is skipped; inside one the open block is discarded as failed,
// since its payload cannot be decoded without the line.
func (st *state) oversized(num int) {
	st.result.Stats.Oversized++
	if st.block == nil {
		st.s.logger.Debug("skipped oversized line", "line", num, "max_line_size", st.s.maxLineSize)
		return
	}

	b := st.block
	st.block = nil
	st.result.Stats.Failed++
	st.diagnose(&csmerrors.Error{
		Type: csmerrors.ErrorTypeSyntax,
		Message: fmt.Sprintf("line exceeds %d bytes; block opened at line %d discarded",
			st.s.maxLineSize, b.BeginLine),
		Location:   csmerrors.Location{Line: num},
		Context:    csmerrors.BlockContext(b.Lines, b.LineNumbers, 0),
		Suggestion: "raise scanner.max_line_size to decode blocks with very long values",
	})
}

func (st *state) unterminated(reason string) {
	b := st.block
	st.block = nil
	st.result.Stats.Unterminated++
	st.diagnose(&csmerrors.Error{
		Type:     csmerrors.ErrorTypeUnterminatedBlock,
		Message:  fmt.Sprintf("block opened at line %d discarded: %s", b.BeginLine, reason),
		Location: csmerrors.Location{Line: b.BeginLine},
		Context:  csmerrors.BlockContext(b.Lines, b.LineNumbers, 0),
	})
}

func (st *state) diagnose(e *csmerrors.Error) {
	e.Location.Source = st.s.source
	st.result.Diagnostics.Add(e)

	attrs := []any{
		"type", string(e.Type),
		"line", e.Location.Line,
		"error", e.Message,
	}
	if e.Type.IsBlockDecode() {
		attrs = append(attrs, "block", e.Context)
	}
	if e.Suggestion != "" {
		attrs = append(attrs, "suggestion", e.Suggestion)
	}
	st.s.logger.Warn("content security check diagnostic", attrs...)
}
