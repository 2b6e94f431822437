package domain

// RootName имя синтетического корня в хлебных крошках
const RootName = "My Drive"

type Breadcrumb struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

type FolderContent struct {
	Path    []Breadcrumb `json:"path"`
	Folders []Item       `json:"folders"`
	Files   []Item       `json:"files"`
}
