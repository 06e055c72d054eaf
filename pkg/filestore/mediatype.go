package filestore

import "strings"

const (
	// DirectoryMediaType is reported for directories and extensionless names.
	DirectoryMediaType = "directory"

	// DefaultMediaType is reported for unknown extensions.
	DefaultMediaType = "application/octet-stream"
)

var mediaTypes = map[string]string{
	"css":           "text/css",
	"js":            "text/javascript",
	"html":          "text/html",
	"htm":           "text/html",
	"xml":           "text/xml",
	"json":          "text/json",
	"java":          "text/x-java-source",
	"py":            "text/x-python",
	"rb":            "text/x-ruby",
	"php":           "text/x-php",
	"nix":           "text/nix",
	"c":             "text/x-csrc",
	"cpp":           "text/x-c++src",
	"cs":            "text/x-csharp",
	"swift":         "text/x-swift",
	"ts":            "text/typescript",
	"sql":           "text/x-sql",
	"go":            "text/x-go",
	"pdf":           "application/pdf",
	"doc":           "application/msword",
	"docx":          "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":           "application/vnd.ms-excel",
	"xlsx":          "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":           "application/vnd.ms-powerpoint",
	"pptx":          "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odt":           "application/vnd.oasis.opendocument.text",
	"ods":           "application/vnd.oasis.opendocument.spreadsheet",
	"png":           "image/png",
	"jpg":           "image/jpeg",
	"jpeg":          "image/jpeg",
	"gif":           "image/gif",
	"bmp":           "image/bmp",
	"svg":           "image/svg+xml",
	"webp":          "image/webp",
	"ico":           "image/x-icon",
	"mp3":           "audio/mpeg",
	"wav":           "audio/wav",
	"ogg":           "audio/ogg",
	"flac":          "audio/flac",
	"aac":           "audio/aac",
	"mp4":           "video/mp4",
	"webm":          "video/webm",
	"avi":           "video/x-msvideo",
	"mkv":           "video/x-matroska",
	"mov":           "video/quicktime",
	"zip":           "application/zip",
	"rar":           "application/x-rar-compressed",
	"tar":           "application/x-tar",
	"gz":            "application/gzip",
	"7z":            "application/x-7z-compressed",
	"txt":           "text/plain",
	"csv":           "text/csv",
	"rtf":           "application/rtf",
	"exe":           "application/x-msdownload",
	"dll":           "application/x-msdownload",
	"dir":           "files/directory",
	"vue":           "text/x-vue",
	"svelte":        "text/x-svelte",
	"astro":         "text/x-astro",
	"scss":          "text/x-scss",
	"sass":          "text/x-sass",
	"less":          "text/x-less",
	"md":            "text/markdown",
	"mdx":           "text/x-mdx",
	"jsx":           "text/jsx",
	"tsx":           "text/tsx",
	"toml":          "text/x-toml",
	"yaml":          "text/yaml",
	"yml":           "text/yaml",
	"properties":    "text/x-java-properties",
	"ini":           "text/x-ini",
	"bat":           "text/x-bat",
	"sh":            "text/x-shellscript",
	"zsh":           "text/x-shellscript",
	"fish":          "text/x-shellscript",
	"dockerfile":    "text/x-dockerfile",
	"env":           "text/x-env",
	"gitignore":     "text/x-gitignore",
	"gitattributes": "text/x-gitattributes",
	"editorconfig":  "text/x-editorconfig",
	"lock":          "text/x-lockfile",
	"lua":           "text/lua",
	"slua":          "text/lua",
	"bin":           "application/octet-stream",
}

// MediaType returns the media type for a node name, looked up by the
// lowercased text after the final dot.
func MediaType(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return DirectoryMediaType
	}
	if mt, ok := mediaTypes[strings.ToLower(name[i+1:])]; ok {
		return mt
	}
	return DefaultMediaType
}
