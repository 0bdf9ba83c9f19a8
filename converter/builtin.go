package converter

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// transcodePNG decodes any registered format and writes it back as PNG
func transcodePNG(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}
	return imaging.Save(img, dst)
}

// resizePNG scales src so its longer side equals size, keeping the aspect
// ratio, and saves the result as PNG
func resizePNG(src, dst string, size int) error {
	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	b := img.Bounds()
	w, h := fitBox(b.Dx(), b.Dy(), size)
	if w == 0 || h == 0 {
		return fmt.Errorf("empty image %s", src)
	}

	return imaging.Save(imaging.Resize(img, w, h, imaging.Lanczos), dst)
}

// fitBox returns the dimensions of a w×h image scaled into a size×size box
func fitBox(w, h, size int) (int, int) {
	if w <= 0 || h <= 0 || size <= 0 {
		return 0, 0
	}
	if w >= h {
		return size, max(1, int(math.Round(float64(h)*float64(size)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(size)/float64(h)))), size
}

// copyFile copies a single file
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
