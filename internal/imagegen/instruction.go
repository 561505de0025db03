// Package imagegen turns image edit requests into provider instructions.
package imagegen

import (
	"strings"

	"offersync/internal/domain"
)

const preserveProduct = "Keep the product itself unchanged: same shape, proportions, colours, labels and text. No blur, no artefacts, no added objects or watermarks."

var directives = map[domain.ImageEditType]string{
	domain.ImageRemoveBackground: "Remove the background completely and place the product on a pure white (#FFFFFF) background with a soft natural shadow.",
	domain.ImageStudio:           "Turn this into a professional studio packshot: clean light-grey seamless backdrop, soft even lighting, subtle reflection under the product.",
	domain.ImageBlurBackground:   "Keep the product in sharp focus and apply a strong, natural-looking bokeh blur to the background.",
	domain.ImageSquareCrop:       "Recompose the image to a 1:1 square with the product centred and a small even margin on all sides. Extend the background naturally if needed.",
	domain.ImageResize1000:       "Output the image at 1000x1000 pixels with the product centred. Extend the background naturally instead of stretching.",
	domain.ImageResize1600:       "Output the image at 1600x1600 pixels with the product centred. Extend the background naturally instead of stretching.",
	domain.ImageBrightness:       "Increase overall brightness moderately so the product looks well lit, without clipping highlights.",
	domain.ImageContrast:         "Increase contrast moderately for a crisper look while keeping shadow and highlight detail.",
	domain.ImageSharpen:          "Sharpen the product details and edges subtly, without halos or noise.",
	domain.ImageSaturation:       "Increase colour saturation moderately so colours look vivid but true to the real product.",
	domain.ImageGrayscale:        "Convert the whole image to a clean black-and-white (grayscale) photo with good tonal range.",
	domain.ImageVintage:          "Apply a tasteful vintage film look: warm faded tones, gentle grain and a soft vignette.",
}

// BuildInstruction renders the instruction for one edit. hasBackgroundImage
// tells the provider that the second input image is the new background.
func BuildInstruction(edit domain.ImageEdit, hasBackgroundImage bool) string {
	parts := []string{}
	if edit.Type == domain.ImageReplaceBackground {
		parts = append(parts, replaceBackground(edit, hasBackgroundImage))
	} else if d, ok := directives[edit.Type]; ok {
		parts = append(parts, d)
	} else {
		parts = append(parts, "Lightly retouch this product photo for a marketplace listing.")
	}
	parts = append(parts, preserveProduct, "Return a single edited image.")
	return strings.Join(parts, " ")
}

func replaceBackground(edit domain.ImageEdit, hasBackgroundImage bool) string {
	prompt := strings.TrimSpace(edit.BackgroundPrompt)
	switch {
	case hasBackgroundImage && prompt != "":
		return "Replace the background of the first image with the scene from the second image, adjusted as follows: " + prompt + ". Match lighting and perspective so the product sits naturally in it."
	case hasBackgroundImage:
		return "Replace the background of the first image with the scene from the second image. Match lighting and perspective so the product sits naturally in it."
	default:
		return "Replace the background with: " + prompt + ". Match lighting and perspective so the product sits naturally in the new scene."
	}
}
