package httputil

// APIVersion is stamped on every envelope so clients can detect breaking
// changes to the envelope shape.
type APIVersion string

const APIVersionV1 APIVersion = "v1"

// CurrentVersion is the version written by Success, Paginated and ErrorEnvelope.
const CurrentVersion = APIVersionV1
