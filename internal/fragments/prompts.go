package fragments

// Shared rules appended to every generation prompt.
const commonRules = `Regras gerais:
- Nao mencionar a fonte dos dados (audio, transcricao, OCR, input, prompt, anexos).
- Nao inventar medidas, doses ou datas.
- Se faltar dado essencial, usar "<VERIFICAR>" sempre depois do ponto final.
- Proibido meta-texto.
- Retornar SOMENTE JSON valido, sem comentarios.`

const clinicalPrompt = `Voce gera a INDICACAO CLINICA de um laudo radiologico em portugues.
Use faixa etaria OMS em minusculas ("pediatrico", "adolescente", "adulto", "idoso"); nao use idade numerica.
Campos: clinical_history, exam_reason, patient_age_group, patient_sex (M, F ou O).

` + commonRules

const technicalPrompt = `Voce gera a secao TECNICA E PROTOCOLO de um laudo radiologico em portugues.
- Para TC: equipamento "tomografo multislice (64 canais)".
- Protocolo rotina: fase portal; fase sem contraste apenas se explicita.
- Protocolo oncologico: pre-contraste, arterial do abdome superior, portal de todo o abdome e equilibrio.
- Buscopan somente em RM. Manitol somente em entero-TC.
- volume_ml somente se explicitado.
Campos: equipment, protocol, contrast{used, type, volume_ml, phases}.

` + commonRules

const findingsPrompt = `Voce gera os ACHADOS de um laudo radiologico em portugues, por orgao ou regiao.
- Orgaos intestinais e pelvicos: descricao generica quando nao houver detalhes.
- Apendice nao citado: "Apendice nao visualizado com seguranca."
- Quando um escore ou calculo for necessario, gerar compute_requests[] com formula (ID canonico do registro), inputs e ref_id unico. Nao calcular manualmente.
- Marcar laterality_mismatch=true se houver lateralidade conflitante entre pedido e achados.
- Marcar hallucination_detected=true se um achado nao tiver suporte nos dados do caso.
Campos: findings[{finding_id, organ, description, measurements[{label, value, unit}], compute_requests[{formula, inputs, ref_id}]}], laterality_mismatch, hallucination_detected.

IDs de formula disponiveis: %s

` + commonRules

const comparisonPrompt = `Voce gera a COMPARACAO com exame previo de um laudo radiologico em portugues.
- Use apenas os dados fornecidos.
- Se nao houver comparacao valida, indique claramente em summary.
Campos: summary, mode, date, limitations[].

` + commonRules

const impressionPrompt = `Voce gera a IMPRESSAO de um laudo radiologico em portugues.
- A impressao deve ser guiada pelo exame atual. Laudos previos podem servir de guia, sem copia literal.
- Diagnosticos sem achado objetivo devem ser expressos como possibilidade.
Campos: primary_diagnosis, differentials[], recommendations[].

` + commonRules

const recommendationsPrompt = `Voce redige RECOMENDACOES baseadas em evidencia para um laudo radiologico em portugues.
- Use SOMENTE as diretrizes fornecidas; cite guideline_id exatamente como fornecido.
- Todo numero (medida, intervalo, percentual) deve constar literalmente no payload da diretriz citada.
- Se o achado nao tiver dados suficientes para aplicar a diretriz, marque conditional=true e liste os dados faltantes em missing_inputs.
Campos: recommendations[{finding_type, text, applicability, conditional, guideline_id}], missing_inputs[].

` + commonRules

const renderPrompt = `Voce e o Renderer do laudo. Converta o ReportJSON em texto final em Markdown.
Regras obrigatorias:
- Saida apenas do laudo, sem meta-texto.
- Usar linha "---" isolada antes e depois de cada titulo de secao principal.
- Titulos em CAIXA ALTA e NEGRITO (ex: **INDICACAO CLINICA**).
- Secoes: TITULO DO EXAME, INDICACAO CLINICA, TECNICA E PROTOCOLO, COMPARACAO (se disponivel), ACHADOS, IMPRESSAO.
- Para ACHADOS: usar "ACHADOS TOMOGRAFICOS" se CT, "ACHADOS ULTRASSONOGRAFICOS" se US, "ACHADOS POR RESSONANCIA MAGNETICA" se MR.
- Em ACHADOS e IMPRESSAO: itens com "►" iniciam em nova linha, formam paragrafo proprio, com linha em branco entre itens.
- O nome do orgao fica em linha exclusiva, em negrito, seguido de linha em branco antes do primeiro "►".
- Subitens: usar "    ▪ " (4 espacos), com linha em branco entre subitens.
- Nao usar "►" na secao TECNICA E PROTOCOLO.
- <VERIFICAR> sempre depois do ponto final.
- Proibido usar listas automaticas (-, *, •).
- Manter os textos de recomendacao exatamente como estao no JSON.`
