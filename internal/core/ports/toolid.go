package ports

// ToolIDCache memoizes the (expensive: it spawns the compiler) program-ID
// computation keyed by tool path and mtime, so repeated invocations of the
// same compiler binary within the memo TTL skip re-running "--version".
//
//go:generate go run go.uber.org/mock/mockgen -source=toolid.go -destination=mocks/mock_toolid.go -package=mocks
type ToolIDCache interface {
	ToolID(path string, mtime int64, compute func() (string, error)) (string, error)
}
