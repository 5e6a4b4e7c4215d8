package quota

import svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"

func errRateLimited(retryAfterSeconds int) error {
	return svcerrors.RateLimited(retryAfterSeconds)
}
