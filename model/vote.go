package model

type VoteKind int

const (
	VoteSkip VoteKind = iota
	VoteStop
)

func (k VoteKind) String() string {
	switch k {
	case VoteSkip:
		return "skip"
	case VoteStop:
		return "stop"
	}
	return "unknown"
}

type VoteStatus int

const (
	VoteSuccess VoteStatus = iota
	VoteAlreadyVoted
	VoteNeedsMore
	VoteNothingPlaying
)

// VoteResult is the outcome of a single vote. Remaining is only set for
// VoteNeedsMore.
type VoteResult struct {
	Status    VoteStatus
	Remaining int
}

// ThresholdFunc returns how many votes are needed given the number of users in
// a voice channel.
type ThresholdFunc func(occupancy int) int

// MajorityThreshold requires more than half of the channel to agree.
func MajorityThreshold(occupancy int) int {
	return occupancy/2 + 1
}

// HalfThreshold requires at least half of the channel to agree.
func HalfThreshold(occupancy int) int {
	return (occupancy + 1) / 2
}

// ThresholdByName maps a configured policy name to its threshold function.
func ThresholdByName(name string) ThresholdFunc {
	switch name {
	case "half":
		return HalfThreshold
	case "unanimous":
		return func(occupancy int) int { return occupancy }
	case "single":
		return func(int) int { return 1 }
	default:
		return MajorityThreshold
	}
}

type voteTracker struct {
	voters map[string]struct{}
	passed bool
}

func newVoteTracker() *voteTracker {
	return &voteTracker{voters: make(map[string]struct{})}
}

// cast records a vote against a freshly computed threshold. Once the tracker has
// passed it stays passed: known voters get VoteAlreadyVoted, new ones VoteSuccess.
func (t *voteTracker) cast(voter string, threshold int) VoteResult {
	if _, ok := t.voters[voter]; ok {
		return VoteResult{Status: VoteAlreadyVoted}
	}
	t.voters[voter] = struct{}{}
	if t.passed {
		return VoteResult{Status: VoteSuccess}
	}

	if threshold < 1 {
		threshold = 1
	}
	if len(t.voters) >= threshold {
		t.passed = true
		return VoteResult{Status: VoteSuccess}
	}
	return VoteResult{Status: VoteNeedsMore, Remaining: threshold - len(t.voters)}
}
