package storage

import "io"

// progressReader reports cumulative bytes read to a ProgressFunc
type progressReader struct {
	r          io.Reader
	read       int64
	onProgress ProgressFunc
}

func newProgressReader(r io.Reader, onProgress ProgressFunc) *progressReader {
	return &progressReader{r: r, onProgress: onProgress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.read)
		}
	}
	return n, err
}
