package domain

// Frame is a decoded screenshot: Height rows of Width RGB pixels.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// At returns the RGB value of the pixel at (x, y).
func (f *Frame) At(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the RGB value of the pixel at (x, y).
func (f *Frame) Set(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}
