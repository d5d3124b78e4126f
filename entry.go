package gtick

import (
	"math"
	"reflect"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Target 回调所属者的不透明标识. 须为非空且可比较的值, 仅做 == 比较.
type Target = any

// Action 动作标签. (Target, Action) 构成逻辑定时器的标识.
type Action string

// EntryId 逻辑定时器ID.
type EntryId = uint64

// EntryIdNone 无效的逻辑定时器ID.
const EntryIdNone = 0

// maxDuration 虚拟时间上限, 到期时间为该值的定时器永不触发.
const maxDuration = time.Duration(math.MaxInt64)

// Callable 逻辑定时器到期时调用的回调.
type Callable interface {
	// Call 执行回调. 未设置参数时 param 为 nil.
	Call(param any)
}

// Func 无参数回调.
type Func func()

func (f Func) Call(any) { f() }

// ParamFunc 带参数回调.
type ParamFunc func(param any)

func (f ParamFunc) Call(param any) { f(param) }

// isNilCallable 判断回调是否为空, 包括值为 nil 的 Func/ParamFunc.
func isNilCallable(fn Callable) bool {
	if fn == nil {
		return true
	}
	v := reflect.ValueOf(fn)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// entryOptions 逻辑定时器选项.
type entryOptions struct {
	repeat   bool
	param    any
	hasParam bool
}

// EntryOption 逻辑定时器选项.
type EntryOption func(*entryOptions)

// WithRepeat 设置是否重复触发. 默认重复.
func WithRepeat(repeat bool) EntryOption {
	return func(o *entryOptions) {
		o.repeat = repeat
	}
}

// WithOnce 仅触发一次, 触发后自动移除.
func WithOnce() EntryOption {
	return WithRepeat(false)
}

// WithParameter 设置回调参数.
func WithParameter(param any) EntryOption {
	return func(o *entryOptions) {
		o.param = param
		o.hasParam = true
	}
}

// entryKey 逻辑定时器标识.
type entryKey struct {
	target Target
	action Action
}

func checkKey(target Target, action Action) error {
	if target == nil {
		return pkgerrors.WithMessage(ErrInvalidArgument, "target nil")
	}
	if !reflect.TypeOf(target).Comparable() {
		return pkgerrors.WithMessagef(ErrInvalidArgument, "target type %T not comparable", target)
	}
	if action == "" {
		return pkgerrors.WithMessage(ErrInvalidArgument, "action empty")
	}
	return nil
}

// entry 逻辑定时器.
type entry struct {
	id        EntryId       // ID.
	key       entryKey      // 标识.
	fn        Callable      // 回调.
	period    time.Duration // 触发间隔.
	repeat    bool          // 是否重复.
	param     any           // 参数.
	hasParam  bool          // 是否设置了参数.
	anchor    time.Duration // 上次触发(或注册)时的虚拟时间.
	dueAt     time.Duration // 下次到期的虚拟时间, 恒大于 anchor.
	heapIndex int           // 堆索引.
}

func (e *entry) HeapLess(other *entry) bool {
	if e.dueAt == other.dueAt {
		return e.id < other.id
	}
	return e.dueAt < other.dueAt
}

func (e *entry) HeapIndex() int {
	return e.heapIndex
}

func (e *entry) SetHeapIndex(index int) {
	e.heapIndex = index
}

// schedule 以 now 为起点重新计时.
func (e *entry) schedule(now time.Duration) {
	e.anchor = now
	e.dueAt = e.nextDue()
}

// nextDue 计算下次到期时间. 0 周期在下一个 tick 到期, 溢出时饱和为 maxDuration.
func (e *entry) nextDue() time.Duration {
	period := e.period
	if period == 0 {
		period = 1
	}
	if period > maxDuration-e.anchor {
		return maxDuration
	}
	return e.anchor + period
}

// advance 触发后推进 anchor, 扣减 period 而非清零以避免漂移.
// 周期短于 tick 时丢弃积压, 每个 tick 最多触发一次.
func (e *entry) advance(now time.Duration) {
	if e.period > maxDuration-e.anchor {
		e.anchor = now
	} else {
		e.anchor += e.period
	}
	if elapsed := now - e.anchor; elapsed >= e.period {
		if e.period == 0 {
			e.anchor = now
		} else {
			e.anchor = now - elapsed%e.period
		}
	}
	e.dueAt = e.nextDue()
}

func (e *entry) snapshot(now time.Duration) Entry {
	return Entry{
		ID:           e.id,
		Target:       e.key.target,
		Action:       e.key.action,
		Period:       e.period,
		Repeat:       e.repeat,
		Parameter:    e.param,
		HasParameter: e.hasParam,
		Elapsed:      now - e.anchor,
	}
}

// Entry 逻辑定时器快照.
type Entry struct {
	ID           EntryId
	Target       Target
	Action       Action
	Period       time.Duration
	Repeat       bool
	Parameter    any
	HasParameter bool
	Elapsed      time.Duration // 自上次触发(或注册)以来累计的时间.
}
