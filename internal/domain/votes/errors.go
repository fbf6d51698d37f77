package votes

import "errors"

// ErrRatingOutOfRange is returned for ratings outside MinRating..MaxRating.
var ErrRatingOutOfRange = errors.New("rating out of range")
