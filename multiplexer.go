package gtick

import (
	"slices"
	"sync"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gutils/container/heap"
	pkgerrors "github.com/pkg/errors"
)

// Multiplexer 定时器复用器.
// 由一个基础 tick 源驱动任意数量的逻辑定时器, 每个逻辑定时器拥有独立的
// 目标、动作、间隔和重复策略. 逻辑定时器的精度受限于基础 tick 周期.
//
// 回调在 tick 源的 goroutine 中同步执行, 执行期间不持有内部锁, 因此回调
// 中可以调用 Multiplexer 的任意方法, 包括 Kill.
type Multiplexer struct {
	cfg     *Config     // 配置.
	logger  glog.Logger // 日志工具.
	metrics *metrics    // 指标.

	mtx     sync.Mutex            // 互斥锁.
	running bool                  // 是否已启动.
	gen     uint64                // tick 订阅代数, 每次 Start 自增.
	idGen   uint64                // ID 生成自增键.
	now     time.Duration         // 虚拟时钟, 每个 tick 前进 TickPeriod.
	ticks   uint64                // 本次启动以来的 tick 数.
	dueHeap *heap.Heap[*entry]    // 按到期时间排序的最小堆.
	entries map[EntryId]*entry    // ID 映射.
	keys    map[entryKey][]*entry // 标识映射, 按注册顺序.
}

// New 构造 Multiplexer. cfg 为空时使用默认配置.
func New(cfg *Config, options ...Option) (*Multiplexer, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if err := c.init(); err != nil {
		return nil, err
	}

	var optSet optionSet
	for _, opt := range options {
		opt(&optSet)
	}

	m := &Multiplexer{cfg: &c}

	mtr, err := newMetrics(optSet.registerer, c.Name)
	if err != nil {
		return nil, err
	}
	m.metrics = mtr

	if optSet.logger == nil {
		optSet.logger = createStdLogger(glog.WarnLevel)
	}
	m.logger = optSet.logger.Named("gtick").WithFields(lfdName(c.Name))

	m.resetRegistry()

	return m, nil
}

// resetRegistry 重置注册表.
func (m *Multiplexer) resetRegistry() {
	m.now = 0
	m.ticks = 0
	m.dueHeap = heap.NewHeap[*entry]()
	m.entries = make(map[EntryId]*entry)
	m.keys = make(map[entryKey][]*entry)
	m.metrics.setEntries(0)
}

// TickPeriod 基础 tick 周期.
func (m *Multiplexer) TickPeriod() time.Duration {
	return m.cfg.TickPeriod
}

// Start 启动基础 tick 订阅. 已启动时无副作用.
func (m *Multiplexer) Start() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.running {
		return nil
	}

	gen := m.gen + 1
	if err := m.cfg.Source.Start(m.cfg.TickPeriod, func() { m.onTick(gen) }); err != nil {
		m.logger.ErrorFields("start tick source", lfdError(err))
		return pkgerrors.WithMessage(err, "start tick source")
	}

	m.gen = gen
	m.running = true

	m.logger.DebugFields("started", lfdTickPeriod(m.cfg.TickPeriod))

	return nil
}

// Kill 停止基础 tick 订阅并清空注册表. 未启动时无副作用.
// 返回后, 除正在执行的回调外, 此前注册的回调不会再被触发.
func (m *Multiplexer) Kill() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if !m.running {
		return
	}

	m.cfg.Source.Stop()
	m.running = false
	m.resetRegistry()

	m.logger.Debug("killed")
}

// Running 是否已启动.
func (m *Multiplexer) Running() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.running
}

// AddTarget 添加逻辑定时器, 替换所有具有相同 (target, action) 的已有定时器.
// period 为 0 或小于基础 tick 周期时, 每个 tick 触发一次. 默认重复触发.
// 新定时器从下一个 tick 开始计时.
func (m *Multiplexer) AddTarget(target Target, action Action, fn Callable, period time.Duration, opts ...EntryOption) (EntryId, error) {
	return m.add(target, action, fn, period, true, opts)
}

// AppendTarget 添加逻辑定时器. 即使已存在相同 (target, action) 的定时器,
// 也会追加一个独立的新定时器.
func (m *Multiplexer) AppendTarget(target Target, action Action, fn Callable, period time.Duration, opts ...EntryOption) (EntryId, error) {
	return m.add(target, action, fn, period, false, opts)
}

func (m *Multiplexer) add(target Target, action Action, fn Callable, period time.Duration, dedup bool, opts []EntryOption) (EntryId, error) {
	if err := checkKey(target, action); err != nil {
		return EntryIdNone, err
	}
	if isNilCallable(fn) {
		return EntryIdNone, pkgerrors.WithMessage(ErrInvalidArgument, "callable nil")
	}
	if period < 0 {
		return EntryIdNone, pkgerrors.WithMessagef(ErrInvalidArgument, "period %s < 0", period)
	}

	eo := entryOptions{repeat: true}
	for _, opt := range opts {
		opt(&eo)
	}

	e := &entry{
		key:       entryKey{target: target, action: action},
		fn:        fn,
		period:    period,
		repeat:    eo.repeat,
		param:     eo.param,
		hasParam:  eo.hasParam,
		heapIndex: -1,
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	removed := 0
	if dedup {
		removed = m.removeKey(e.key)
	}

	m.idGen++
	e.id = m.idGen
	e.schedule(m.now)
	m.dueHeap.Push(e)
	m.entries[e.id] = e
	m.keys[e.key] = append(m.keys[e.key], e)
	m.metrics.setEntries(len(m.entries))

	m.logger.DebugFields("add target",
		lfdEntryId(e.id), lfdTarget(target), lfdAction(action),
		lfdPeriod(period), lfdRepeat(e.repeat), lfdRemoved(removed))

	return e.id, nil
}

// RemoveTarget 移除所有与 (target, action) 匹配的逻辑定时器, 返回移除数量.
// 不存在匹配项时无副作用.
func (m *Multiplexer) RemoveTarget(target Target, action Action) int {
	if checkKey(target, action) != nil {
		return 0
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	n := m.removeKey(entryKey{target: target, action: action})
	if n > 0 {
		m.metrics.setEntries(len(m.entries))
	}
	return n
}

// RemoveAllWithTarget 同 RemoveTarget, 移除所有通过 AppendTarget 追加的重复项.
func (m *Multiplexer) RemoveAllWithTarget(target Target, action Action) int {
	return m.RemoveTarget(target, action)
}

// RemoveEntry 移除 ID 为 id 的逻辑定时器.
func (m *Multiplexer) RemoveEntry(id EntryId) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return false
	}

	m.remove(e)
	m.metrics.setEntries(len(m.entries))
	return true
}

// RemoveAll 移除所有逻辑定时器, 不影响 tick 订阅.
func (m *Multiplexer) RemoveAll() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.dueHeap = heap.NewHeap[*entry]()
	m.entries = make(map[EntryId]*entry)
	m.keys = make(map[entryKey][]*entry)
	m.metrics.setEntries(0)
}

// removeKey 移除所有标识为 key 的定时器.
func (m *Multiplexer) removeKey(key entryKey) int {
	list := m.keys[key]
	for _, e := range list {
		m.dueHeap.Remove(e.heapIndex)
		delete(m.entries, e.id)
	}
	delete(m.keys, key)
	return len(list)
}

// remove 移除定时器.
func (m *Multiplexer) remove(e *entry) {
	m.dueHeap.Remove(e.heapIndex)
	delete(m.entries, e.id)

	list := m.keys[e.key]
	if i := slices.Index(list, e); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(m.keys, e.key)
	} else {
		m.keys[e.key] = list
	}
}

// Len 已注册的逻辑定时器数量.
func (m *Multiplexer) Len() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.entries)
}

// Contains 是否存在与 (target, action) 匹配的逻辑定时器.
func (m *Multiplexer) Contains(target Target, action Action) bool {
	if checkKey(target, action) != nil {
		return false
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.keys[entryKey{target: target, action: action}]) > 0
}

// Entries 返回所有逻辑定时器的快照, 按注册顺序排列.
func (m *Multiplexer) Entries() []Entry {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	list := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		list = append(list, e.snapshot(m.now))
	}
	slices.SortFunc(list, func(a, b Entry) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return list
}

// Ticks 本次启动以来处理的 tick 数.
func (m *Multiplexer) Ticks() uint64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.ticks
}

// firing 待执行的回调.
type firing struct {
	id     EntryId
	key    entryKey
	fn     Callable
	param  any
	repeat bool
}

// onTick 处理一次基础 tick.
// 每次从堆顶取出一个已到期的定时器并在锁外执行回调, 因此回调中移除的定时器
// 不会在本 tick 中被触发, 回调中添加的定时器最早在下一个 tick 到期.
func (m *Multiplexer) onTick(gen uint64) {
	begin := time.Now()

	m.mtx.Lock()
	if !m.running || m.gen != gen {
		m.mtx.Unlock()
		return
	}
	m.now += m.cfg.TickPeriod
	m.ticks++
	now := m.now
	m.mtx.Unlock()

	for {
		f, ok := m.popDue(gen, now)
		if !ok {
			break
		}
		m.invoke(&f)
	}

	m.metrics.tick(time.Since(begin))
}

// popDue 取出一个在 now 之前到期的定时器. 重复定时器重新计时, 单次定时器直接移除.
func (m *Multiplexer) popDue(gen uint64, now time.Duration) (firing, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if !m.running || m.gen != gen || m.dueHeap.Len() == 0 {
		return firing{}, false
	}

	e := m.dueHeap.Top()
	if e.dueAt > now {
		return firing{}, false
	}

	f := firing{
		id:     e.id,
		key:    e.key,
		fn:     e.fn,
		param:  e.param,
		repeat: e.repeat,
	}

	if e.repeat {
		e.advance(now)
		m.dueHeap.Fix(e.heapIndex)
	} else {
		m.remove(e)
		m.metrics.setEntries(len(m.entries))
	}

	return f, true
}

// invoke 执行回调. 回调 panic 时记录日志并继续处理其它定时器.
func (m *Multiplexer) invoke(f *firing) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.recovered()
			m.logger.ErrorFields("callback panic",
				lfdEntryId(f.id), lfdTarget(f.key.target), lfdAction(f.key.action), lfdPanic(r))
		}
	}()

	f.fn.Call(f.param)
	m.metrics.fire(f.repeat)
}
