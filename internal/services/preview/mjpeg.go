// Package preview serves the annotated frames of the running job as an
// MJPEG stream.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const (
	boundary          = "frame"
	keepaliveInterval = 2 * time.Second
)

// Publisher keeps the latest annotated frame as JPEG and pushes it to every
// connected viewer
type Publisher struct {
	quality int
	logger  zerolog.Logger

	jpegMutex  sync.RWMutex
	latestJPEG []byte

	notifyMutex sync.Mutex
	viewers     map[chan struct{}]struct{}
}

func NewPublisher(quality int, logger zerolog.Logger) *Publisher {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Publisher{
		quality: quality,
		logger:  logger,
		viewers: make(map[chan struct{}]struct{}),
	}
}

// PublishFrame encodes img and wakes the viewers
func (p *Publisher) PublishFrame(img gocv.Mat) error {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	b := buf.GetBytes()
	jpegCopy := make([]byte, len(b))
	copy(jpegCopy, b)
	buf.Close()

	p.jpegMutex.Lock()
	p.latestJPEG = jpegCopy
	p.jpegMutex.Unlock()

	p.notifyMutex.Lock()
	for ch := range p.viewers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	p.notifyMutex.Unlock()
	return nil
}

func (p *Publisher) latest() []byte {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.latestJPEG
}

func (p *Publisher) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	p.notifyMutex.Lock()
	p.viewers[ch] = struct{}{}
	p.notifyMutex.Unlock()
	return ch
}

func (p *Publisher) unsubscribe(ch chan struct{}) {
	p.notifyMutex.Lock()
	delete(p.viewers, ch)
	p.notifyMutex.Unlock()
}

// Viewers returns the number of connected viewers
func (p *Publisher) Viewers() int {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	return len(p.viewers)
}

// StreamMJPEG writes a multipart/x-mixed-replace stream until the client
// goes away
func (p *Publisher) StreamMJPEG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	notify := p.subscribe()
	defer p.unsubscribe(notify)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first := p.latest()
	if len(first) == 0 {
		first = p.placeholder()
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	p.logger.Debug().Str("client_ip", r.RemoteAddr).Msg("Preview viewer connected")

	keepaliveTicker := time.NewTicker(keepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}
		if buf := p.latest(); len(buf) > 0 {
			if !writePart(buf) {
				return
			}
		}
	}
}

func (p *Publisher) placeholder() []byte {
	img := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	img.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&img, "No counting run yet", image.Pt(20, 190), gocv.FontHersheySimplex, 1.0, textColor, 2)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		return nil
	}
	defer buf.Close()
	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
