package webserv

import (
	"bufio"
	"os"
	"strings"

	"github.com/aofei/mimesniffer"
)

// defaultMimeTypes is the built-in extension-to-MIME table, used when no
// mime_types_path is configured and as a fallback for extensions a loaded
// table doesn't cover. The table is built once, handed to whoever needs
// it, and never mutated after load.
var defaultMimeTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".xml":   "application/xml; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".webp":  "image/webp",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
	".tar":   "application/x-tar",
	".mp4":   "video/mp4",
	".mp3":   "audio/mpeg",
	".wav":   "audio/wav",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".wasm":  "application/wasm",
}

// LoadMimeTypesFile parses an nginx-style mime.types file ("type ext1 ext2
// ...;" per line) into an extension->MIME map, merged over
// defaultMimeTypes so an incomplete custom table still resolves common
// extensions.
func LoadMimeTypesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string, len(defaultMimeTypes))
	for k, v := range defaultMimeTypes {
		out[k] = v
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		line = strings.TrimSuffix(line, ";")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "types") || line == "}" || line == "{" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		mimeType := fields[0]
		for _, ext := range fields[1:] {
			out["."+ext] = mimeType
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// detectMimeType resolves name's extension against table, falling back to
// content-sniffing data with mimesniffer when the extension is
// unrecognized, and finally to application/octet-stream.
func detectMimeType(name string, data []byte, table map[string]string) string {
	ext := extensionOf(name)
	if table != nil {
		if mt, ok := table[ext]; ok {
			return mt
		}
	}
	if mt, ok := defaultMimeTypes[ext]; ok {
		return mt
	}

	if len(data) > 0 {
		if mt := mimesniffer.Sniff(data); mt != "" {
			return mt
		}
	}
	return "application/octet-stream"
}

func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}
