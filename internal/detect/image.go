package detect

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spakin/netpbm"
)

// ErrUnreadableImage is returned when a reference image cannot be opened or decoded.
var ErrUnreadableImage = errors.New("unreadable reference image")

// LoadImage decodes a PNG, JPEG or Netpbm (PBM/PGM/PPM/PAM) file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}

	var img image.Image
	if magic[0] == 'P' && magic[1] >= '1' && magic[1] <= '7' {
		img, err = netpbm.Decode(br, nil)
	} else {
		img, _, err = image.Decode(br)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrUnreadableImage, path)
	}
	return img, nil
}
