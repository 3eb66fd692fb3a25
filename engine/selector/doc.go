// Package selector 把页面元素定位做成数据而不是代码。
//
// 每个命名选择器是一串按序尝试的策略（CSS、XPath、可见文本），
// 平台改版时改 YAML 即可。解析器严格按声明顺序尝试，
// 任何一条命中就停，全部失败按 NotFound 归类。
package selector
