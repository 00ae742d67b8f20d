package firestore

import "github.com/PabloGalante/campfire/internal/domain"

func tagToDoc(t domain.Tag) tagDoc {
	return tagDoc{
		Kind:      string(t.Kind),
		Name:      t.Name,
		ValueKind: int(t.Value.Kind),
		Str:       t.Value.Str,
		Int:       int64(t.Value.Int),
		Fields:    t.Value.Fields,
	}
}

func tagFromDoc(d tagDoc) domain.Tag {
	t := domain.Tag{Kind: domain.TagKind(d.Kind), Name: d.Name}
	switch domain.ValueKind(d.ValueKind) {
	case domain.ValueString:
		t.Value = domain.StringValue(d.Str)
	case domain.ValueInt:
		t.Value = domain.IntValue(int(d.Int))
	case domain.ValueFields:
		t.Value = domain.FieldsValue(d.Fields)
	}
	return t
}

func messageToDoc(m *domain.Message) messageDoc {
	tags := make([]tagDoc, 0, len(m.Tags))
	for _, t := range m.Tags {
		tags = append(tags, tagToDoc(t))
	}
	return messageDoc{
		Index:       int64(m.Index),
		Role:        string(m.Role),
		Text:        m.Text,
		Attachments: m.Attachments,
		Tags:        tags,
		CreatedAt:   m.CreatedAt,
	}
}

func messageFromDoc(id domain.SessionID, d messageDoc) *domain.Message {
	tags := make([]domain.Tag, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, tagFromDoc(t))
	}
	return &domain.Message{
		Index:       int(d.Index),
		SessionID:   id,
		Role:        domain.Role(d.Role),
		Text:        d.Text,
		Attachments: d.Attachments,
		Tags:        tags,
		CreatedAt:   d.CreatedAt,
	}
}

func toInt64(p *int) *int64 {
	if p == nil {
		return nil
	}
	v := int64(*p)
	return &v
}

func toInt(p *int64) *int {
	if p == nil {
		return nil
	}
	v := int(*p)
	return &v
}

func stateToDoc(s *domain.SessionState) stateDoc {
	doc := stateDoc{
		Version:            s.Version,
		CurrentQuestID:     string(s.CurrentQuestID),
		InConversationWith: string(s.InConversationWith),
		AskCursor:          s.AskCursor,
		AskMessageIndex:    toInt64(s.AskMessageIndex),
		Flags:              s.Flags,
		Character:          s.Character,
		Progress:           make(map[string]progressDoc, len(s.Progress)),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	for _, q := range s.Quests {
		doc.Quests = append(doc.Quests, questDoc{
			ID:                  string(q.ID),
			Title:               q.Title,
			IntroSent:           q.IntroSent,
			OutroSent:           q.OutroSent,
			ProblemAnswers:      q.ProblemAnswers,
			IntroMessageIndex:   toInt64(q.IntroMessageIndex),
			SummaryMessageIndex: toInt64(q.SummaryMessageIndex),
			Archived:            q.Archived,
			StartedAt:           q.StartedAt,
			ArchivedAt:          q.ArchivedAt,
		})
	}
	for scope, p := range s.Progress {
		if p == nil {
			continue
		}
		pd := progressDoc{Answers: p.Answers, Emitted: make(map[string][]int64, len(p.Emitted))}
		for step, indices := range p.Emitted {
			out := make([]int64, len(indices))
			for i, v := range indices {
				out[i] = int64(v)
			}
			pd.Emitted[step] = out
		}
		doc.Progress[scope] = pd
	}
	if s.Error != nil {
		doc.Error = &errorDoc{Procedure: s.Error.Procedure, Message: s.Error.Message, At: s.Error.At}
	}
	return doc
}

func stateFromDoc(id domain.SessionID, d stateDoc) *domain.SessionState {
	s := domain.NewSessionState(id, d.CreatedAt)
	s.Version = d.Version
	s.CurrentQuestID = domain.QuestID(d.CurrentQuestID)
	s.InConversationWith = domain.NPCID(d.InConversationWith)
	s.AskCursor = d.AskCursor
	s.AskMessageIndex = toInt(d.AskMessageIndex)
	s.UpdatedAt = d.UpdatedAt
	for k, v := range d.Flags {
		s.Flags[k] = v
	}
	for k, v := range d.Character {
		s.Character[k] = v
	}
	for _, q := range d.Quests {
		s.Quests = append(s.Quests, &domain.Quest{
			ID:                  domain.QuestID(q.ID),
			Title:               q.Title,
			IntroSent:           q.IntroSent,
			OutroSent:           q.OutroSent,
			ProblemAnswers:      q.ProblemAnswers,
			IntroMessageIndex:   toInt(q.IntroMessageIndex),
			SummaryMessageIndex: toInt(q.SummaryMessageIndex),
			Archived:            q.Archived,
			StartedAt:           q.StartedAt,
			ArchivedAt:          q.ArchivedAt,
		})
	}
	for scope, pd := range d.Progress {
		p := s.ProgressFor(scope)
		for k, v := range pd.Answers {
			p.Answers[k] = v
		}
		for step, indices := range pd.Emitted {
			out := make([]int, len(indices))
			for i, v := range indices {
				out[i] = int(v)
			}
			p.Emitted[step] = out
		}
	}
	if d.Error != nil {
		s.Error = &domain.ProcedureError{Procedure: d.Error.Procedure, Message: d.Error.Message, At: d.Error.At}
	}
	return s
}
