package domain

type ProcessKind string

const (
	ProcessLogin  ProcessKind = "login"
	ProcessUpload ProcessKind = "upload"
)

type Credentials struct {
	APIID   string `json:"apiId"`
	APIHash string `json:"apiHash"`
}

// UploadConfig is everything the upload process needs besides the folder.
type UploadConfig struct {
	Credentials
	ChatID string `json:"chatId"`
	Credit string `json:"credit"`
}

// UploadProfile holds the upload defaults remembered between runs.
type UploadProfile struct {
	ChatID string
	Credit string
}

const DefaultCredit = "Uploaded by @thnoxs"
