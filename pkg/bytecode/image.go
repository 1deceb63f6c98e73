package bytecode

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the current image format version.
// Increment when making incompatible changes to the format.
const ImageVersion uint16 = 1

// ImageMagic prefixes every image file. No valid raw program starts with
// 'N' (0x4E is not an opcode), so images and raw bytecode never collide.
var ImageMagic = []byte{'N', 'U', 'M', 'I'}

// image is the CBOR payload that follows ImageMagic.
type image struct {
	Version   uint16     `cbor:"1,keyasint"`
	Code      []byte     `cbor:"2,keyasint"`
	Constants []Constant `cbor:"3,keyasint,omitempty"`
	Functions []Function `cbor:"4,keyasint,omitempty"`
	VarNames  []string   `cbor:"5,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// IsImage reports whether data starts with the image magic.
func IsImage(data []byte) bool {
	return bytes.HasPrefix(data, ImageMagic)
}

// EncodeImage bundles a program, typed constants included, into the image
// format:
//
//	[magic:4 "NUMI"] [cbor: {1: version, 2: code, 3: constants, 4: functions, 5: var names}]
func EncodeImage(p *Program) ([]byte, error) {
	payload, err := cborEncMode.Marshal(image{
		Version:   ImageVersion,
		Code:      p.Code,
		Constants: p.Constants,
		Functions: p.Functions,
		VarNames:  p.VarNames,
	})
	if err != nil {
		return nil, fmt.Errorf("bytecode: encode image: %w", err)
	}
	buf := make([]byte, 0, len(ImageMagic)+len(payload))
	buf = append(buf, ImageMagic...)
	return append(buf, payload...), nil
}

// DecodeImage decodes an image produced by EncodeImage.
func DecodeImage(data []byte) (*Program, error) {
	if !IsImage(data) {
		return nil, fmt.Errorf("bytecode: invalid image magic: expected %q", ImageMagic)
	}

	var img image
	if err := cbor.Unmarshal(data[len(ImageMagic):], &img); err != nil {
		return nil, fmt.Errorf("bytecode: decode image: %w", err)
	}
	if img.Version > ImageVersion {
		return nil, fmt.Errorf("bytecode: image version %d is newer than supported version %d", img.Version, ImageVersion)
	}

	p := &Program{
		Code:      img.Code,
		Constants: img.Constants,
		Functions: img.Functions,
		VarNames:  img.VarNames,
	}
	if p.Code == nil {
		p.Code = []byte{}
	}
	return p, nil
}
