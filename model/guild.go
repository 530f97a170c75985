package model

import "slices"

type ReplaceStatus int

const (
	Queued ReplaceStatus = iota
	ReplacedInQueue
	ReplacedCurrent
)

// ReplaceResult describes what ReplaceLatest did. Old is the displaced item for
// ReplacedInQueue and the still-playing item for ReplacedCurrent; ChannelID is
// only set for ReplacedCurrent.
type ReplaceResult struct {
	Status    ReplaceStatus
	Old       *Item
	ChannelID string
}

type NextStatus int

const (
	NextEntry NextStatus = iota
	NextAlreadyPlaying
	NextNoneAvailable
)

type NextResult struct {
	Status NextStatus
	Item   *Item
}

// ActionRef points at the last action message posted for a guild.
type ActionRef struct {
	ChannelID string
	MessageID string
}

type channelState struct {
	cursor  string // user served last, "" to start from the oldest user
	active  bool
	stopped bool
	current *Item
	votes   map[VoteKind]*voteTracker
}

// Guild is the queue and vote state of a single guild. It does no I/O and is not
// safe for concurrent use; callers go through GuildHandle.Lock.
type Guild struct {
	id        string
	threshold ThresholdFunc

	users    []string           // users with queued items, in order of first enqueue
	queues   map[string][]*Item // per-user sub-queues
	channels map[string]*channelState

	messageChannel string
	lastAction     *ActionRef
}

func NewGuild(id string, threshold ThresholdFunc) *Guild {
	if threshold == nil {
		threshold = MajorityThreshold
	}
	return &Guild{
		id:        id,
		threshold: threshold,
		queues:    make(map[string][]*Item),
		channels:  make(map[string]*channelState),
	}
}

func (g *Guild) ID() string {
	return g.id
}

func (g *Guild) channel(channelID string) *channelState {
	cs, ok := g.channels[channelID]
	if !ok {
		cs = &channelState{votes: make(map[VoteKind]*voteTracker)}
		g.channels[channelID] = cs
	}
	return cs
}

// Enqueue appends items to the user's sub-queue.
func (g *Guild) Enqueue(userID string, items ...*Item) {
	if len(items) == 0 {
		return
	}
	if _, ok := g.queues[userID]; !ok {
		g.users = append(g.users, userID)
	}
	g.queues[userID] = append(g.queues[userID], items...)
}

// ReplaceLatest swaps the user's most recently queued item for item. If the user
// has nothing queued but their item is the one playing in maybeChannel, item is
// queued and the caller is told to replace the current playback.
func (g *Guild) ReplaceLatest(userID, maybeChannel string, item *Item) ReplaceResult {
	if q := g.queues[userID]; len(q) > 0 {
		old := q[len(q)-1]
		q[len(q)-1] = item
		return ReplaceResult{Status: ReplacedInQueue, Old: old}
	}

	if maybeChannel != "" {
		if cs, ok := g.channels[maybeChannel]; ok && cs.active && cs.current != nil && cs.current.RequesterID == userID {
			g.Enqueue(userID, item)
			return ReplaceResult{Status: ReplacedCurrent, Old: cs.current, ChannelID: maybeChannel}
		}
	}

	g.Enqueue(userID, item)
	return ReplaceResult{Status: Queued}
}

// NextForChannel picks the next item for a channel that is not playing yet and
// marks the channel active.
func (g *Guild) NextForChannel(d Delegate, channelID string) NextResult {
	cs := g.channel(channelID)
	if cs.active {
		return NextResult{Status: NextAlreadyPlaying}
	}

	item, ok := g.selectNext(d, channelID, cs)
	if !ok {
		return NextResult{Status: NextNoneAvailable}
	}
	cs.activate(item)
	return NextResult{Status: NextEntry, Item: item}
}

// NextForChannelAfterFinish picks the next item regardless of the active flag. It
// is used once the caller knows the previous playback is over or being replaced.
func (g *Guild) NextForChannelAfterFinish(d Delegate, channelID string) (*Item, bool) {
	cs := g.channel(channelID)
	item, ok := g.selectNext(d, channelID, cs)
	if !ok {
		cs.active = false
		return nil, false
	}
	cs.activate(item)
	return item, true
}

func (cs *channelState) activate(item *Item) {
	cs.active = true
	cs.stopped = false
	cs.current = item
	cs.votes = make(map[VoteKind]*voteTracker)
}

// selectNext pops the next item for the channel and advances its cursor.
func (g *Guild) selectNext(d Delegate, channelID string, cs *channelState) (*Item, bool) {
	userID, ok := g.nextUser(d, channelID, cs)
	if !ok {
		return nil, false
	}

	q := g.queues[userID]
	item := q[0]
	q[0] = nil
	g.queues[userID] = q[1:]
	cs.cursor = userID
	if len(g.queues[userID]) == 0 {
		g.dropUser(userID)
	}
	return item, true
}

// nextUser walks users round-robin starting after the channel cursor and returns
// the first one with a queued item who is currently in the channel.
func (g *Guild) nextUser(d Delegate, channelID string, cs *channelState) (string, bool) {
	n := len(g.users)
	if n == 0 {
		return "", false
	}

	start := 0
	if cs.cursor != "" {
		if idx := slices.Index(g.users, cs.cursor); idx >= 0 {
			start = idx + 1
		}
	}

	for i := 0; i < n; i++ {
		userID := g.users[(start+i)%n]
		if len(g.queues[userID]) == 0 {
			continue
		}
		if ch, ok := d.UserVoiceChannel(userID); !ok || ch != channelID {
			continue
		}
		return userID, true
	}
	return "", false
}

// PeekForChannel returns the item the next selection in channelID would pick,
// without changing any state.
func (g *Guild) PeekForChannel(d Delegate, channelID string) (*Item, bool) {
	cs, ok := g.channels[channelID]
	if !ok {
		cs = &channelState{}
	}
	userID, ok := g.nextUser(d, channelID, cs)
	if !ok {
		return nil, false
	}
	return g.queues[userID][0], true
}

// dropUser removes a user with an empty sub-queue, moving any cursor that points
// at them back to the previous user so the rotation position is kept.
func (g *Guild) dropUser(userID string) {
	idx := slices.Index(g.users, userID)
	if idx < 0 {
		return
	}
	prev := ""
	if idx > 0 {
		prev = g.users[idx-1]
	}
	for _, cs := range g.channels {
		if cs.cursor == userID {
			cs.cursor = prev
		}
	}
	g.users = slices.Delete(g.users, idx, idx+1)
	delete(g.queues, userID)
}

// SetStopped marks a channel as explicitly stopped. Auto-advance is suppressed
// until the next successful selection in the channel.
func (g *Guild) SetStopped(channelID string) {
	cs := g.channel(channelID)
	cs.stopped = true
	cs.active = false
}

func (g *Guild) IsStopped(channelID string) bool {
	cs, ok := g.channels[channelID]
	return ok && cs.stopped
}

func (g *Guild) IsActive(channelID string) bool {
	cs, ok := g.channels[channelID]
	return ok && cs.active
}

// Current returns the item most recently selected for the channel, even if it has
// finished playing.
func (g *Guild) Current(channelID string) *Item {
	if cs, ok := g.channels[channelID]; ok {
		return cs.current
	}
	return nil
}

func (g *Guild) SetMessageChannel(channelID string) {
	g.messageChannel = channelID
}

func (g *Guild) MessageChannel() (string, bool) {
	return g.messageChannel, g.messageChannel != ""
}

func (g *Guild) SetLastAction(ref *ActionRef) {
	g.lastAction = ref
}

func (g *Guild) LastAction() *ActionRef {
	return g.lastAction
}

// Vote casts a vote of the given kind for the item playing in channelID.
func (g *Guild) Vote(d Delegate, kind VoteKind, channelID, voterID string) VoteResult {
	cs, ok := g.channels[channelID]
	if !ok || !cs.active {
		return VoteResult{Status: VoteNothingPlaying}
	}

	t, ok := cs.votes[kind]
	if !ok {
		t = newVoteTracker()
		cs.votes[kind] = t
	}
	return t.cast(voterID, g.threshold(d.ChannelOccupancy(channelID)))
}

// Queue returns a copy of the user's pending items.
func (g *Guild) Queue(userID string) []*Item {
	return slices.Clone(g.queues[userID])
}

// Pending returns the number of queued items across all users.
func (g *Guild) Pending() int {
	total := 0
	for _, q := range g.queues {
		total += len(q)
	}
	return total
}
