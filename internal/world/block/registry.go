package block

import "sync"

// ID идентификатор типа блока
type ID uint16

// Константы ID блоков
const (
	Air      ID = iota // 0
	Stone              // 1
	Grass              // 2
	Water              // 3
	Sand               // 4
	Dirt               // 5
	Bedrock            // 6
	Log                // 7
	Concrete           // 8
	Lava               // 9
)

// Properties свойства типа блока
type Properties struct {
	Name string `json:"name"`
	// Solid блок непроницаем для заливки
	Solid bool `json:"solid"`
}

var (
	mu       sync.RWMutex
	registry = map[ID]Properties{
		Air:      {Name: "air"},
		Stone:    {Name: "stone", Solid: true},
		Grass:    {Name: "grass", Solid: true},
		Water:    {Name: "water"},
		Sand:     {Name: "sand", Solid: true},
		Dirt:     {Name: "dirt", Solid: true},
		Bedrock:  {Name: "bedrock", Solid: true},
		Log:      {Name: "log", Solid: true},
		Concrete: {Name: "concrete", Solid: true},
		Lava:     {Name: "lava"},
	}
)

// Register добавляет или заменяет свойства блока в регистре
func Register(id ID, props Properties) {
	mu.Lock()
	defer mu.Unlock()
	registry[id] = props
}

// Get возвращает свойства для указанного ID
func Get(id ID) (Properties, bool) {
	mu.RLock()
	defer mu.RUnlock()
	props, exists := registry[id]
	return props, exists
}

// IsValid проверяет, является ли ID зарегистрированным
func IsValid(id ID) bool {
	_, exists := Get(id)
	return exists
}

// IsSolid сообщает, твёрдый ли блок. Незарегистрированные ID считаются твёрдыми.
func IsSolid(id ID) bool {
	props, exists := Get(id)
	if !exists {
		return true
	}
	return props.Solid
}

// ByName ищет ID по имени блока
func ByName(name string) (ID, bool) {
	mu.RLock()
	defer mu.RUnlock()
	for id, props := range registry {
		if props.Name == name {
			return id, true
		}
	}
	return 0, false
}
