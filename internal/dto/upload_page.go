// UploadsPage is a paginated response payload for the upload journal.
package dto

type UploadsPage struct {
	Uploads     []UploadInfo `json:"uploads"`
	Length      int          `json:"length"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Limit       int          `json:"pageSize"`
}
