package capture

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const wavHeaderSize = 44

// wavWriter streams 16-bit PCM into a RIFF/WAVE file and patches the size
// fields on Close
type wavWriter struct {
	file       *os.File
	sampleRate int
	channels   int
	dataBytes  int64
}

func newWAVWriter(file *os.File, sampleRate, channels int) (*wavWriter, error) {
	w := &wavWriter{file: file, sampleRate: sampleRate, channels: channels}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *wavWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	w.dataBytes += int64(n)
	return n, err
}

// Seconds returns the duration of audio written so far
func (w *wavWriter) Seconds() float64 {
	bytesPerSecond := int64(w.sampleRate * w.channels * 2)
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(w.dataBytes) / float64(bytesPerSecond)
}

// Close rewrites the header with the final sizes and closes the file
func (w *wavWriter) Close() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to rewind wav file: %w", err)
	}
	if err := w.writeHeader(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *wavWriter) writeHeader() error {
	const bitsPerSample = 16
	blockAlign := w.channels * bitsPerSample / 8
	byteRate := w.sampleRate * blockAlign

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+w.dataBytes))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(w.dataBytes))

	if _, err := w.file.Write(header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}
	return nil
}

// rmsLevel returns the RMS of 16-bit little-endian samples scaled to 0..1
func rmsLevel(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < samples; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += v * v
	}
	level := sum / float64(samples)
	if level <= 0 {
		return 0
	}
	return math.Min(math.Sqrt(level), 1)
}
