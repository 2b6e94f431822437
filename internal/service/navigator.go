package service

import "localdrive/internal/domain"

// Navigator хранит путь от корня до текущей папки.
// Путь накапливается по мере переходов, хранилище для этого не опрашивается.
type Navigator struct {
	path []domain.Breadcrumb
}

func NewNavigator() *Navigator {
	return &Navigator{
		path: []domain.Breadcrumb{{ID: nil, Name: domain.RootName}},
	}
}

// Current - идентификатор текущей папки, nil для корня
func (n *Navigator) Current() *string {
	return n.path[len(n.path)-1].ID
}

func (n *Navigator) Path() []domain.Breadcrumb {
	out := make([]domain.Breadcrumb, len(n.path))
	copy(out, n.path)
	return out
}

// Enter добавляет папку в путь. Для файла ничего не делает и возвращает false.
func (n *Navigator) Enter(item *domain.Item) bool {
	if item == nil || !item.IsFolder {
		return false
	}

	id := item.ID
	n.path = append(n.path, domain.Breadcrumb{ID: &id, Name: item.Name})
	return true
}

// Click обрезает путь до элемента с индексом i включительно
func (n *Navigator) Click(i int) bool {
	if i < 0 || i >= len(n.path) {
		return false
	}
	n.path = n.path[:i+1]
	return true
}

// Up возвращается в родительскую папку
func (n *Navigator) Up() bool {
	return n.Click(len(n.path) - 2)
}
