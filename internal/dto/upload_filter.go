// UploadFilters narrow the upload journal listing.
package dto

type UploadFilters struct {
	Class  string
	Status string
	Limit  int
	Offset int
}
