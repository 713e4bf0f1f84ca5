package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

const readBufferSize = 64 * 1024

// lineReader splits input on '\n' and strips an optional trailing '\r'.
// Over-long lines are consumed in full so reading resumes at the next line.
type lineReader struct {
	br  *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, readBufferSize)}
}

// next returns the next line. It returns ErrLineTooLong for a line over
// MaxLineSize and io.EOF once the input is exhausted.
func (lr *lineReader) next() (string, error) {
	lr.buf = lr.buf[:0]
	read, tooLong := 0, false
	for {
		chunk, err := lr.br.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			// Two extra bytes leave room for a "\r\n" terminator.
			if len(lr.buf)+len(chunk) > MaxLineSize+2 {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		// An unterminated final line is returned; the next call reports EOF.
		if err != nil && !(errors.Is(err, io.EOF) && read > 0) {
			return "", err
		}
		break
	}

	line := bytes.TrimSuffix(lr.buf, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if tooLong || len(line) > MaxLineSize {
		return "", ErrLineTooLong
	}
	return string(line), nil
}

// lenient wraps r so that invalid UTF-8 byte sequences are dropped. Valid
// text, including an encoded U+FFFD, passes through unchanged.
func lenient(r io.Reader) io.Reader {
	return transform.NewReader(r, dropInvalidUTF8{})
}

type dropInvalidUTF8 struct{ transform.NopResetter }

func (dropInvalidUTF8) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if c := src[nSrc]; c < utf8.RuneSelf {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size == 1 {
			nSrc++
			continue
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], src[nSrc:nSrc+size])
		nSrc += size
	}
	return nDst, nSrc, nil
}
