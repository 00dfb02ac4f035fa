package evictor

import (
	"errors"
	"io/fs"
	"sort"
	"sync"
	"time"

	"AirgapFM/logger"
)

// DefaultBackoff 删除失败文件的重试间隔
var DefaultBackoff = []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 60 * time.Second}

const reclaimQueueSize = 64

type reclaimTask struct {
	path    string
	attempt int // index into backoff of the wait that preceded this try
	due     time.Time
}

// Reclaimer 回收首次删除失败（文件仍被占用）的文件
// 由单个 goroutine 按有限的间隔重试
type Reclaimer struct {
	remove  func(path string) error
	backoff []time.Duration

	tasks   chan reclaimTask
	mu      sync.Mutex
	pending map[string]struct{}

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReclaimer 创建回收器，backoff 为 nil 时使用 DefaultBackoff
func NewReclaimer(remove func(path string) error, backoff []time.Duration) *Reclaimer {
	if len(backoff) == 0 {
		backoff = DefaultBackoff
	}
	return &Reclaimer{
		remove:   remove,
		backoff:  backoff,
		tasks:    make(chan reclaimTask, reclaimQueueSize),
		pending:  make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}
}

// Start 启动重试协程
func (r *Reclaimer) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop 停止回收，放弃未完成的重试
func (r *Reclaimer) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
}

// Pending 等待重试的文件数
func (r *Reclaimer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Reclaim 尝试立即删除 path，失败则加入重试
// 返回文件是否已不存在
func (r *Reclaimer) Reclaim(path string) bool {
	if r.tryRemove(path) {
		return true
	}

	r.mu.Lock()
	if _, ok := r.pending[path]; ok {
		r.mu.Unlock()
		return false
	}
	r.pending[path] = struct{}{}
	r.mu.Unlock()

	task := reclaimTask{path: path, attempt: 0, due: time.Now().Add(r.backoff[0])}
	select {
	case r.tasks <- task:
		logger.Info("scheduled delayed cleanup",
			logger.File(path),
			logger.Duration("in", r.backoff[0]))
	default:
		r.done(path)
		logger.Warn("delayed cleanup queue full, dropping", logger.File(path))
	}
	return false
}

func (r *Reclaimer) tryRemove(path string) bool {
	err := r.remove(path)
	return err == nil || errors.Is(err, fs.ErrNotExist)
}

func (r *Reclaimer) done(path string) {
	r.mu.Lock()
	delete(r.pending, path)
	r.mu.Unlock()
}

func (r *Reclaimer) run() {
	defer r.wg.Done()

	var queue []reclaimTask
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var wait <-chan time.Time
		if len(queue) > 0 {
			timer.Stop()
			timer.Reset(time.Until(queue[0].due))
			wait = timer.C
		}

		select {
		case <-r.stopChan:
			return
		case t := <-r.tasks:
			queue = insertByDue(queue, t)
		case <-wait:
			task := queue[0]
			queue = queue[1:]
			if next, retry := r.attempt(task); retry {
				queue = insertByDue(queue, next)
			}
		}
	}
}

func (r *Reclaimer) attempt(task reclaimTask) (reclaimTask, bool) {
	if r.tryRemove(task.path) {
		r.done(task.path)
		logger.Info("delayed cleanup succeeded",
			logger.File(task.path),
			logger.Int("attempt", task.attempt+1))
		return reclaimTask{}, false
	}

	next := task.attempt + 1
	if next >= len(r.backoff) {
		r.done(task.path)
		logger.Warn("giving up on delayed cleanup",
			logger.File(task.path),
			logger.Int("attempts", next))
		return reclaimTask{}, false
	}
	return reclaimTask{path: task.path, attempt: next, due: time.Now().Add(r.backoff[next])}, true
}

func insertByDue(queue []reclaimTask, t reclaimTask) []reclaimTask {
	i := sort.Search(len(queue), func(i int) bool { return queue[i].due.After(t.due) })
	queue = append(queue, reclaimTask{})
	copy(queue[i+1:], queue[i:])
	queue[i] = t
	return queue
}
