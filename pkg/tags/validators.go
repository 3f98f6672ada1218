package tags

type ListTagsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=500"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Kind   *string `query:"kind" json:"kind,omitempty" validate:"omitempty,tagkind"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
	All    bool    `query:"all" json:"all,omitempty"`
}
