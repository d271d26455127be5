package card

import "github.com/teemow/gitmail/internal/github"

const assetBase = "https://raw.githubusercontent.com/mymindstorm/GitMail/master/img/"

// Header and status images.
const (
	ImageOpenIssue   = assetBase + "open-issue.png"
	ImageClosedIssue = assetBase + "closed-issue.png"
	ImagePullOpen    = assetBase + "pull-open.png"
	ImagePullClosed  = assetBase + "pull-closed.png"
	// No artwork exists for merged pull requests.
	ImagePullMerged = ""

	ImageWarn    = assetBase + "confused.png"
	ImageError   = assetBase + "error.png"
	ImageSuccess = assetBase + "info.png"
)

type statusIcon struct {
	url, alt string
}

var statusIcons = map[github.Severity]statusIcon{
	github.SeverityWarn:    {url: ImageWarn, alt: "Warning"},
	github.SeverityErr:     {url: ImageError, alt: "Error"},
	github.SeveritySuccess: {url: ImageSuccess, alt: "Success"},
}
