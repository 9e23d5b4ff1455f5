// Package wikipedia is a small MediaWiki client that resolves a free-text
// topic to a short article summary.
package wikipedia

// Kind tags the outcome of a lookup.
type Kind int

const (
	KindSuccess Kind = iota
	KindAmbiguous
	KindNotFound
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAmbiguous:
		return "ambiguous"
	case KindNotFound:
		return "not_found"
	default:
		return "other"
	}
}

// MaxOptions caps the candidate titles reported for an ambiguous topic.
const MaxOptions = 5

// Result is the decoded outcome of a lookup. Which fields are set depends
// on Kind: Summary/URL/Title for success, Options for ambiguous, Message
// for other.
type Result struct {
	Kind    Kind
	Title   string
	Summary string
	URL     string
	Options []string
	Message string
}

func success(title, summary, url string) Result {
	return Result{Kind: KindSuccess, Title: title, Summary: summary, URL: url}
}

func ambiguous(options []string) Result {
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}
	return Result{Kind: KindAmbiguous, Options: options}
}

func notFound() Result {
	return Result{Kind: KindNotFound}
}

func other(err error) Result {
	return Result{Kind: KindOther, Message: err.Error()}
}
