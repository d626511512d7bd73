package config

type UploadConfig struct {
	AllowedMimeTypes []string
	MaxSizeMB        int64
	PathPrefix       string
}

var UploadContexts = map[string]UploadConfig{
	"work_plan": {
		AllowedMimeTypes: []string{
			"application/pdf", "image/jpeg", "image/png", "application/zip",
		},
		MaxSizeMB:  30,
		PathPrefix: "work-plans",
	},
}
