package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// preprocess decodes the upload, resizes it to the square input the model was
// trained on, and lays the pixels out channel-first with [0,1] normalization.
func preprocess(imageBytes []byte, targetSize int) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return imageToTensor(img, targetSize), nil
}

func imageToTensor(img image.Image, targetSize int) []float32 {
	resized := resize.Resize(uint(targetSize), uint(targetSize), img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Max.X, bounds.Max.Y

	const channels = 3
	inputData := make([]float32, channels*width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = float32(r) / 65535.0
			inputData[width*height+pixelIndex] = float32(g) / 65535.0
			inputData[2*width*height+pixelIndex] = float32(b) / 65535.0
		}
	}

	return inputData
}
