package provision

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

var pullChoices = []prompt.Option{
	{Label: "Continue without this image", Value: PullContinue},
	{Label: "Retry with a longer budget", Value: PullRetry},
	{Label: "Abort the installation", Value: PullAbort},
}

// pullImages pulls refs one at a time. Each ref gets PullRetries attempts
// with a fixed backoff; when they are used up the operator chooses between
// continuing without the image, retrying with PullExtendedRetries
// attempts, or aborting.
func (e *Executor) pullImages(ctx context.Context, refs []string, res *Result) error {
	logger := log.WithFunc("provision.pullImages")
	backoff := e.Layout.PullBackoff()

	for _, ref := range refs {
		budget := e.Layout.PullRetries
		for {
			n, err := utils.Retry(ctx, budget, backoff, func(attempt int) error {
				logger.Infof(ctx, "pulling %s (attempt %d/%d)", ref, attempt, budget)
				return e.Engine.Pull(ctx, ref)
			})
			if err == nil {
				res.Pulled = append(res.Pulled, ref)
				break
			}
			if ctx.Err() != nil {
				return types.Fatal("pull "+ref, ctx.Err(), "re-run the command")
			}
			logger.Warnf(ctx, "pull %s failed after %d attempts: %v", ref, n, err)

			choice, perr := e.Prompter.Select(ctx,
				fmt.Sprintf("Pulling %s failed after %d attempts. What now?", ref, n),
				pullChoices, PullContinue)
			if perr != nil {
				return types.Fatal("pull "+ref, perr, "re-run the command")
			}
			switch choice {
			case PullRetry:
				budget = e.Layout.PullExtendedRetries
				continue
			case PullAbort:
				return types.Fatal("pull "+ref, types.ErrAborted,
					fmt.Sprintf("check network access to the registry, then try `docker pull %s`", ref))
			default:
				res.Skipped = append(res.Skipped, ref)
				res.soft(ctx, types.Transient("skip image "+ref, err, "retry later with `docker pull "+ref+"`"))
			}
			break
		}
	}
	return nil
}
