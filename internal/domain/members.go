package domain

import "time"

type Member struct {
	ID       string    `json:"id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Members is the room roster. The list is kept in join order, so the first
// element is always the member with the longest continuous membership.
type Members struct {
	list   []Member
	hostID string
	limit  int
}

// NewMembers creates a roster with creator as host. A limit below 1 means
// unlimited.
func NewMembers(creator Member, limit int) *Members {
	return &Members{
		list:   []Member{creator},
		hostID: creator.ID,
		limit:  limit,
	}
}

func (m *Members) Length() int {
	return len(m.list)
}

func (m *Members) HostID() string {
	return m.hostID
}

func (m *Members) IsHost(id string) bool {
	return id != "" && m.hostID == id
}

func (m *Members) AsList() []Member {
	list := make([]Member, len(m.list))
	copy(list, m.list)
	return list
}

func (m *Members) IDs() []string {
	ids := make([]string, 0, len(m.list))
	for _, member := range m.list {
		ids = append(ids, member.ID)
	}
	return ids
}

func (m *Members) Contains(id string) bool {
	_, err := m.indexOf(id)
	return err == nil
}

func (m *Members) indexOf(id string) (int, error) {
	for index, member := range m.list {
		if member.ID == id {
			return index, nil
		}
	}

	return 0, ErrMemberNotFound
}

// Add appends member to the roster. The first member added to an empty
// roster becomes host; becameHost reports that.
func (m *Members) Add(member Member) (becameHost bool, err error) {
	if m.Contains(member.ID) {
		return false, ErrMemberAlreadyExists
	}

	if m.limit > 0 && len(m.list) >= m.limit {
		return false, ErrMembersLimitReached
	}

	m.list = append(m.list, member)
	if m.hostID == "" {
		m.hostID = member.ID
		return true, nil
	}

	return false, nil
}

// Remove deletes the member. If it was the host and anyone is left, the
// longest-tenured remaining member is promoted and returned as newHostID.
func (m *Members) Remove(id string) (removed Member, newHostID string, err error) {
	index, err := m.indexOf(id)
	if err != nil {
		return Member{}, "", err
	}

	removed = m.list[index]
	m.list = append(m.list[:index], m.list[index+1:]...)

	if m.hostID != id {
		return removed, "", nil
	}

	if len(m.list) == 0 {
		m.hostID = ""
		return removed, "", nil
	}

	m.hostID = m.list[0].ID
	return removed, m.hostID, nil
}

func (m *Members) SetHost(id string) error {
	if !m.Contains(id) {
		return ErrMemberNotFound
	}

	m.hostID = id
	return nil
}
