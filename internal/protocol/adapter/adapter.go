package adapter

// Adapter 设备族协议适配器：Device 将收到的原始字节交给它
// - Sniff 判断首包前缀是否属于本协议（虚拟设备与诊断工具使用）
// - ProcessBytes 处理来自连接的原始字节流（内部负责半包/粘包），解码后发布事件
// - Reset 在重连后丢弃残留的半包
type Adapter interface {
	Sniff(prefix []byte) bool
	ProcessBytes(p []byte) error
	Reset()
}

// Func 将普通函数适配为 Adapter（测试与文本协议使用）
type Func func(p []byte) error

func (f Func) Sniff([]byte) bool { return true }

func (f Func) ProcessBytes(p []byte) error { return f(p) }

func (f Func) Reset() {}
