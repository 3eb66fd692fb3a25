// Package retry 实现失败分类与指数退避重试。
// 它只决定一个操作是否、何时、再试多少次；操作本身由调用方提供。
package retry
