package store

import (
	"fmt"
	"net/url"
	"strings"
)

// ViewURL builds the public view link for a stored file. It depends only on
// its arguments.
func ViewURL(endpoint, bucket, project, fileID string) string {
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/view?project=%s",
		strings.TrimRight(endpoint, "/"),
		url.PathEscape(bucket),
		url.PathEscape(fileID),
		url.QueryEscape(project),
	)
}
