package vision

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -mmacosx-version-min=10.15
#cgo LDFLAGS: -framework Vision -framework Foundation -framework CoreImage

#include <stdlib.h>

// Implemented in ocr_darwin.m.
extern char* recognizeScreenText(const char* imagePath, const char* language);
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// recognizeText performs OCR on the image at the given path using the
// Vision framework. language is a BCP 47 hint; empty means automatic.
func recognizeText(imagePath, language string) (string, error) {
	cPath := C.CString(imagePath)
	defer C.free(unsafe.Pointer(cPath))

	cLang := C.CString(language)
	defer C.free(unsafe.Pointer(cLang))

	cResult := C.recognizeScreenText(cPath, cLang)
	if cResult == nil {
		return "", fmt.Errorf("OCR failed to recognize text or load image")
	}
	defer C.free(unsafe.Pointer(cResult))

	return C.GoString(cResult), nil
}
