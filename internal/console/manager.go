package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopsmart_v1_202610/internal/model"
)

// ==================== Manager 会话管理 ====================

// Options 会话参数
type Options struct {
	NoticeDelay time.Duration // 提交成功提示的显示时长
	SessionTTL  time.Duration // 空闲多久后回收
}

// Manager 持有全部控制台会话
type Manager struct {
	backend Backend
	opts    Options
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	onEvict  []func(id string)
}

// NewManager 创建会话管理器
func NewManager(backend Backend, opts Options) *Manager {
	if opts.NoticeDelay <= 0 {
		opts.NoticeDelay = 2 * time.Second
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	return &Manager{
		backend:  backend,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Backend 当前数据模式
func (m *Manager) Backend() Backend {
	return m.backend
}

// OnEvict 注册会话结束回调（如清理限流 key）
func (m *Manager) OnEvict(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = append(m.onEvict, fn)
}

// Login 登录并创建会话
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	identity, err := m.backend.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	s := m.add(identity)
	zap.L().Info("console session opened",
		zap.String("session_id", s.ID),
		zap.String("backend", m.backend.Name()),
		zap.String("username", identity.User.Username),
		zap.String("role", identity.User.Role))
	return s, nil
}

// Guest 匿名访客会话，只能使用店面与购物车
func (m *Manager) Guest() *Session {
	return m.add(nil)
}

func (m *Manager) add(identity *Identity) *Session {
	s := newSession(uuid.NewString(), identity, m.backend.Gateway(identity), m.opts.NoticeDelay, m.now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get 获取会话并刷新访问时间
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Refresh 刷新上游 token；本地模式无需刷新，直接返回会话
func (m *Manager) Refresh(ctx context.Context, id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	r, ok := m.backend.(Refresher)
	if !ok {
		return s, nil
	}
	identity, err := r.RefreshIdentity(ctx, s.currentIdentity())
	if err != nil {
		return nil, err
	}
	s.refreshIdentity(identity, m.backend.Gateway(identity))
	return s, nil
}

// Logout 结束会话
func (m *Manager) Logout(id string) {
	m.remove(id)
}

func (m *Manager) remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	hooks := m.onEvict
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.close()
	for _, fn := range hooks {
		fn(id)
	}
	return true
}

// EvictIdle 回收空闲超过 SessionTTL 的会话，返回回收数量
func (m *Manager) EvictIdle() int {
	deadline := m.now().Add(-m.opts.SessionTTL)

	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.LastSeen().Before(deadline) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range idle {
		if m.remove(id) {
			n++
		}
	}
	return n
}

// Len 会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ==================== Gate 登录分流 ====================

// 视图
const (
	ViewShop      = "shop"
	ViewDashboard = "dashboard"
)

// Module 后台模块
type Module struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

var (
	adminModules = []Module{
		{Key: "products", Title: "Products"},
		{Key: "categories", Title: "Categories"},
		{Key: "inventory", Title: "Inventory"},
		{Key: "stock", Title: "Stock"},
		{Key: "sales", Title: "Sales"},
		{Key: "forecast", Title: "Sales forecast"},
		{Key: "users", Title: "Users"},
		{Key: "roles", Title: "Roles"},
		{Key: "reports", Title: "Reports"},
	}
	sellerModules = []Module{
		{Key: "sales", Title: "Sales"},
	}
)

// GateView 分流结果
type GateView struct {
	View    string   `json:"view"`
	Role    string   `json:"role"`
	Modules []Module `json:"modules"`
}

// Gate 按角色决定进入店面还是后台；顾客与访客进入店面
func Gate(role string) GateView {
	switch role {
	case model.RoleAdmin:
		return GateView{View: ViewDashboard, Role: role, Modules: append([]Module(nil), adminModules...)}
	case model.RoleSeller:
		return GateView{View: ViewDashboard, Role: role, Modules: append([]Module(nil), sellerModules...)}
	default:
		return GateView{View: ViewShop, Role: role, Modules: []Module{}}
	}
}

// CanAuthor 是否可以使用商品向导
func CanAuthor(role string) bool {
	return role == model.RoleAdmin
}
