package dto

// DocumentUpload is an uploaded file read into memory by the transport layer.
type DocumentUpload struct {
	Filename string
	Content  []byte
}

// Document is a stored document returned for download.
type Document struct {
	Ref         string
	ContentType string
	Content     []byte
}
