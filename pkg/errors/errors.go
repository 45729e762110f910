package errors

import "errors"

// ErrRunInProgress 另一个锁定任务正在执行
var ErrRunInProgress = errors.New("已有锁定任务在执行，请稍后重试")
