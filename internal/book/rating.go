package book

// Recompute derives (averageRating, totalReviews) from a review collection.
// An empty collection yields (0, 0). The average is the unrounded float64
// quotient of the rating sum and the count.
//
// Every mutating repository operation calls this before the aggregate is
// persisted; the derived columns on the books table are never written from
// anywhere else.
func Recompute(reviews []Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews)), len(reviews)
}
