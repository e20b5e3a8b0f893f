package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// FrameTypeImage is the only header type the hub accepts.
const FrameTypeImage = "image"

// MaxHeaderBytes bounds the JSON header of an image frame.
const MaxHeaderBytes = 64 << 10

var (
	ErrUnknownType = errors.New("unknown frame type")
	ErrIncomplete  = errors.New("incomplete transfer")
	ErrTooLarge    = errors.New("declared length exceeds limit")
)

// ImageHeader is the JSON header preceding an image body.
// DeviceID is optional; senders that set it get explicit correlation.
type ImageHeader struct {
	Type      string `json:"type"`
	Trigger   string `json:"trigger"`
	Timestamp string `json:"timestamp"`
	Filename  string `json:"filename"`
	DeviceID  string `json:"device_id,omitempty"`
}

// ReadImageHeader reads [4-byte BE length][JSON header]. A header whose type is
// not "image" is returned together with ErrUnknownType.
func ReadImageHeader(r io.Reader) (ImageHeader, error) {
	n, err := readLength(r)
	if err != nil {
		return ImageHeader{}, fmt.Errorf("header length: %w", err)
	}
	if n == 0 || n > MaxHeaderBytes {
		return ImageHeader{}, fmt.Errorf("%w: header of %d bytes", ErrTooLarge, n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return ImageHeader{}, fmt.Errorf("header: %w", incomplete(err))
	}

	var hdr ImageHeader
	if err := json.Unmarshal(buf, &hdr); err != nil {
		return ImageHeader{}, fmt.Errorf("%w: header json: %v", ErrMalformed, err)
	}
	if hdr.Type != FrameTypeImage {
		return hdr, fmt.Errorf("%w: %q", ErrUnknownType, hdr.Type)
	}
	return hdr, nil
}

// ReadImageBody reads [4-byte BE length][body] and requires exactly length bytes.
func ReadImageBody(r io.Reader, maxBytes int64) ([]byte, error) {
	n, err := readLength(r)
	if err != nil {
		return nil, fmt.Errorf("body length: %w", err)
	}
	if int64(n) > maxBytes {
		return nil, fmt.Errorf("%w: body of %d bytes", ErrTooLarge, n)
	}

	body := make([]byte, n)
	got, err := io.ReadFull(r, body)
	if err != nil {
		return nil, fmt.Errorf("body: expected %d bytes, received %d: %w", n, got, incomplete(err))
	}
	return body, nil
}

// WriteImageFrame writes a complete header+body frame.
func WriteImageFrame(w io.Writer, hdr ImageHeader, body []byte) error {
	raw, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if err := writeLength(w, len(raw)); err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeLength(w, len(body)); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func readLength(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, incomplete(err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeLength(w io.Writer, n int) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	return nil
}

func incomplete(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	return err
}
