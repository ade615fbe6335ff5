package export

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"strconv"
	"strings"
)

// usdzAlign is the byte alignment USDZ requires for every file's data.
const usdzAlign = 64

// paddingExtraID tags the zip extra field used to pad headers.
const paddingExtraID = 0x5544

// USDZEncoder writes a USDZ package: an ASCII USD layer stored,
// uncompressed and 64-byte aligned, in a zip archive.
type USDZEncoder struct{}

// Layer renders s as a USDA document.
func (USDZEncoder) Layer(s *Scene) []byte {
	var b bytes.Buffer
	names := make([]string, len(s.Objects))
	used := make(map[string]int)
	for i, o := range s.Objects {
		n := primName(o.Name)
		if c := used[n]; c > 0 {
			n = fmt.Sprintf("%s_%d", n, c)
		}
		used[primName(o.Name)]++
		names[i] = n
	}

	fmt.Fprintf(&b, "#usda 1.0\n(\n    defaultPrim = %q\n    metersPerUnit = 1\n    upAxis = \"Y\"\n)\n", names[0])
	for i, o := range s.Objects {
		m := o.Mesh
		fmt.Fprintf(&b, "\ndef Xform %q\n{\n    def Mesh \"geometry\"\n    {\n", names[i])

		b.WriteString("        int[] faceVertexCounts = [")
		for t := 0; t < m.TriangleCount(); t++ {
			if t > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('3')
		}
		b.WriteString("]\n        int[] faceVertexIndices = [")
		for j, idx := range m.Indices {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatUint(uint64(idx), 10))
		}
		b.WriteString("]\n        point3f[] points = [")
		for v := 0; v < m.VertexCount(); v++ {
			if v > 0 {
				b.WriteString(", ")
			}
			p := m.Vertex(v)
			fmt.Fprintf(&b, "(%s, %s, %s)", usdFloat(p[0]), usdFloat(p[1]), usdFloat(p[2]))
		}
		b.WriteString("]\n        uniform token subdivisionScheme = \"none\"\n    }\n}\n")
	}
	return b.Bytes()
}

func usdFloat(f float64) string {
	return strconv.FormatFloat(float64(float32(f)), 'g', -1, 32)
}

// primName turns an object name into a valid USD identifier.
func primName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "mesh"
	}
	return b.String()
}

// Encode writes s to path.
func (e USDZEncoder) Encode(s *Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("usdz: %w", err)
	}
	if err := writeAlignedZip(f, []zipEntry{{Name: "mesh.usda", Data: e.Layer(s)}}); err != nil {
		_ = f.Close()
		return fmt.Errorf("usdz: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("usdz: %w", err)
	}
	return nil
}

type zipEntry struct {
	Name string
	Data []byte
}

// writeAlignedZip stores entries uncompressed, padding each local header's
// extra field so that file data starts on a usdzAlign boundary.
func writeAlignedZip(w *os.File, entries []zipEntry) error {
	zw := zip.NewWriter(w)
	var offset int64
	for _, e := range entries {
		const localHeaderLen = 30
		dataStart := offset + localHeaderLen + int64(len(e.Name))
		pad := (usdzAlign - dataStart%usdzAlign) % usdzAlign
		if pad > 0 && pad < 4 {
			pad += usdzAlign
		}
		var extra []byte
		if pad > 0 {
			extra = make([]byte, pad)
			binary.LittleEndian.PutUint16(extra[0:], paddingExtraID)
			binary.LittleEndian.PutUint16(extra[2:], uint16(pad-4))
		}

		fw, err := zw.CreateRaw(&zip.FileHeader{
			Name:               e.Name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(e.Data),
			CompressedSize64:   uint64(len(e.Data)),
			UncompressedSize64: uint64(len(e.Data)),
			Extra:              extra,
		})
		if err != nil {
			return err
		}
		if _, err := fw.Write(e.Data); err != nil {
			return err
		}
		offset = dataStart + pad + int64(len(e.Data))
	}
	return zw.Close()
}
