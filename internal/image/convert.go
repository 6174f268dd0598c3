package image

import (
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// ToMat converts a Go image to a BGR Mat. The caller closes it.
func ToMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)

	stripes(height, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				// OpenCV uses BGR order
				mat.SetUCharAt(y, x*3+0, uint8(b>>8))
				mat.SetUCharAt(y, x*3+1, uint8(g>>8))
				mat.SetUCharAt(y, x*3+2, uint8(r>>8))
			}
		}
	})
	return mat
}

// ToImage converts a 1-, 3- or 4-channel 8-bit Mat to an RGBA image.
func ToImage(mat gocv.Mat) *image.RGBA {
	h := mat.Rows()
	w := mat.Cols()
	ch := mat.Channels()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := img.Stride

	stripes(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			rowOffset := y * stride
			for x := 0; x < w; x++ {
				p := rowOffset + x*4
				if ch == 1 {
					v := mat.GetUCharAt(y, x)
					img.Pix[p+0], img.Pix[p+1], img.Pix[p+2] = v, v, v
				} else {
					img.Pix[p+0] = mat.GetUCharAt(y, x*ch+2) // R
					img.Pix[p+1] = mat.GetUCharAt(y, x*ch+1) // G
					img.Pix[p+2] = mat.GetUCharAt(y, x*ch+0) // B
				}
				img.Pix[p+3] = 255
			}
		}
	})
	return img
}

// stripes runs fn over horizontal bands of rows, one goroutine per CPU.
func stripes(rows int, fn func(yStart, yEnd int)) {
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (rows + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > rows {
			endY = rows
		}
		if startY >= rows {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			fn(yStart, yEnd)
		}(startY, endY)
	}
	wg.Wait()
}
